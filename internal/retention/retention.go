// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retention keeps the corpus under its size cap by evicting the
// oldest non-classic papers from both stores.
package retention

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ap-aditya/srchive/internal/store"
	"github.com/ap-aditya/srchive/internal/vectorindex"
	"github.com/ap-aditya/srchive/pkg/types"
)

// Report describes one enforcement pass.
type Report struct {
	Before   int
	MaxItems int

	// Selected is how many records were chosen for eviction. It is smaller
	// than Before-MaxItems when too few non-classic records exist.
	Selected int
	Deleted  int
	After    int
}

// Controller enforces the corpus cap.
type Controller struct {
	Index vectorindex.Index
	Store store.Store

	// DeleteBatchSize caps ids per vector delete call (default 1000).
	DeleteBatchSize int

	// W receives a summary line. Nil discards.
	W io.Writer
}

// Enforce deletes the oldest non-classic records, ordered by ingested_at
// then id, until at most maxItems remain or only classic records are left.
// Vectors are removed before metadata. Running it twice is a no-op.
func (c *Controller) Enforce(ctx context.Context, maxItems int) (Report, error) {
	w := c.W
	if w == nil {
		w = io.Discard
	}
	rep := Report{MaxItems: maxItems}

	count, err := c.Store.Count(ctx, store.Filter{})
	if err != nil {
		return rep, fmt.Errorf("counting records: %w", err)
	}
	rep.Before, rep.After = count, count
	if count <= maxItems {
		slog.Debug("corpus within cap", "count", count, "max_items", maxItems)
		return rep, nil
	}

	victims, err := c.Store.Find(ctx, store.Filter{ExcludeType: types.PaperClassic}, store.SortOldest, count-maxItems)
	if err != nil {
		return rep, fmt.Errorf("selecting records to evict: %w", err)
	}
	rep.Selected = len(victims)
	if len(victims) == 0 {
		fmt.Fprintln(w, "No old non-classic papers to delete.")
		return rep, nil
	}

	ids := make([]string, len(victims))
	for i, p := range victims {
		ids[i] = p.ID
	}

	fmt.Fprintf(w, "Deleting %d old non-classic papers (corpus %d, cap %d).\n", len(ids), count, maxItems)
	if _, err := vectorindex.DeleteBatched(ctx, c.Index, ids, c.DeleteBatchSize); err != nil {
		return rep, fmt.Errorf("evicting vectors: %w", err)
	}

	n, err := c.Store.DeleteMany(ctx, store.Filter{IDs: ids})
	if err != nil {
		return rep, fmt.Errorf("evicting records: %w", err)
	}
	rep.Deleted = int(n)
	rep.After = count - rep.Deleted
	slog.Info("retention enforced", "deleted", rep.Deleted, "remaining", rep.After)
	return rep, nil
}
