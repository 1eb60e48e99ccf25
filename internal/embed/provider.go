// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed turns paper text and search queries into fixed-dimension
// vectors. Ingestion and search must use the same Provider configuration.
package embed

import (
	"context"
	"errors"
)

// ErrEmptyText is returned for blank input.
var ErrEmptyText = errors.New("embed: empty text")

// Provider generates embeddings from text.
type Provider interface {
	// Embed returns a vector of length Dimensions for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the embedding model name.
	Model() string

	// Dimensions returns the vector length.
	Dimensions() int
}
