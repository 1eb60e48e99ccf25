// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"

	"github.com/ap-aditya/srchive/internal/store"
)

// ProcessedSet holds the ids believed present in the metadata store. It is
// seeded once per run and only grows; the store stays the source of truth.
type ProcessedSet map[string]struct{}

// LoadProcessed seeds a set from every id in st.
func LoadProcessed(ctx context.Context, st store.Store) (ProcessedSet, error) {
	ids, err := st.AllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading processed ids: %w", err)
	}
	s := make(ProcessedSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s, nil
}

// Has reports whether id has been processed.
func (s ProcessedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add marks id as processed.
func (s ProcessedSet) Add(id string) {
	s[id] = struct{}{}
}

// Remove forgets ids, so a paper whose write failed is retried.
func (s ProcessedSet) Remove(ids ...string) {
	for _, id := range ids {
		delete(s, id)
	}
}
