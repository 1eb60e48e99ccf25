// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vectorindex stores one embedding per paper id and answers
// nearest-neighbour queries. Scores are cosine similarities, higher is closer.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
)

// MaxDeleteBatch is the most ids a single Delete call accepts.
const MaxDeleteBatch = 1000

var (
	// ErrDimension is returned when a vector length differs from the index.
	ErrDimension = errors.New("vector dimension mismatch")

	// ErrBatchTooLarge is returned by Delete for more than MaxDeleteBatch ids.
	ErrBatchTooLarge = errors.New("delete batch too large")
)

// Vector is an embedding keyed by paper id.
type Vector struct {
	ID     string
	Values []float32
}

// Match is a query hit.
type Match struct {
	ID    string
	Score float64
}

// Index is the vector store contract used by ingestion, retention and search.
type Index interface {
	// Upsert inserts or replaces vectors by id.
	Upsert(ctx context.Context, vectors []Vector) error

	// Query returns up to topK matches ordered by descending score.
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)

	// Delete removes ids. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// IDs lists every stored id.
	IDs(ctx context.Context) ([]string, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	Close() error
}

// DeleteBatched deletes ids in chunks of at most size (MaxDeleteBatch when
// size is out of range). It stops at the first failing chunk and returns how
// many ids were deleted before it.
func DeleteBatched(ctx context.Context, idx Index, ids []string, size int) (int, error) {
	if size <= 0 || size > MaxDeleteBatch {
		size = MaxDeleteBatch
	}
	done := 0
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		if err := idx.Delete(ctx, ids[start:end]); err != nil {
			return done, fmt.Errorf("deleting ids %d-%d: %w", start, end, err)
		}
		done = end
	}
	return done, nil
}

func checkDims(want int, vectors ...[]float32) error {
	for _, v := range vectors {
		if len(v) != want {
			return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(v), want)
		}
	}
	return nil
}
