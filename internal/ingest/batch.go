// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ap-aditya/srchive/internal/store"
	"github.com/ap-aditya/srchive/internal/vectorindex"
	"github.com/ap-aditya/srchive/pkg/types"
)

// DefaultBatchSize is the flush threshold used when none is configured.
const DefaultBatchSize = 200

// StagedBatch buffers matching vector and metadata writes. Add flushes once
// the threshold is reached; callers must Flush the remainder when done.
type StagedBatch struct {
	index     vectorindex.Index
	store     store.Store
	threshold int

	vectors []vectorindex.Vector
	papers  []types.Paper

	// Flushed counts papers committed to both stores.
	Flushed int
}

// NewStagedBatch returns an empty batch writing to idx and st.
func NewStagedBatch(idx vectorindex.Index, st store.Store, threshold int) *StagedBatch {
	if threshold <= 0 {
		threshold = DefaultBatchSize
	}
	return &StagedBatch{index: idx, store: st, threshold: threshold}
}

// Len returns the number of staged, unflushed papers.
func (b *StagedBatch) Len() int { return len(b.papers) }

// Add stages a paper with its embedding and flushes at the threshold.
func (b *StagedBatch) Add(ctx context.Context, p types.Paper, vector []float32) error {
	b.vectors = append(b.vectors, vectorindex.Vector{ID: p.ID, Values: vector})
	b.papers = append(b.papers, p)
	if len(b.papers) >= b.threshold {
		return b.Flush(ctx)
	}
	return nil
}

// FlushError reports a flush that did not commit. IDs lists the papers that
// were staged in the failed batch.
type FlushError struct {
	IDs []string
	Err error
}

func (e *FlushError) Error() string { return e.Err.Error() }

func (e *FlushError) Unwrap() error { return e.Err }

// unflushedIDs returns the ids lost by a failed flush, if err carries them.
func unflushedIDs(err error) []string {
	var fe *FlushError
	if errors.As(err, &fe) {
		return fe.IDs
	}
	return nil
}

// Flush writes staged vectors, then staged metadata, and clears the buffers
// whatever the outcome. A failure is returned as a *FlushError. A failure
// after the vector write leaves the two stores diverged until the next repair.
func (b *StagedBatch) Flush(ctx context.Context) error {
	if len(b.papers) == 0 {
		return nil
	}
	vectors, papers := b.vectors, b.papers
	b.vectors, b.papers = nil, nil

	if err := b.index.Upsert(ctx, vectors); err != nil {
		return flushError(papers, fmt.Errorf("upserting %d vectors: %w", len(vectors), err))
	}
	if err := b.store.BulkUpsert(ctx, papers); err != nil {
		return flushError(papers, fmt.Errorf("upserting %d records: %w", len(papers), err))
	}
	b.Flushed += len(papers)
	slog.Debug("batch flushed", "count", len(papers), "total", b.Flushed)
	return nil
}

func flushError(papers []types.Paper, err error) *FlushError {
	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	return &FlushError{IDs: ids, Err: err}
}
