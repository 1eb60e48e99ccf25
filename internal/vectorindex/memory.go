// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorindex

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
)

// Memory is an exact, in-process Index. It backs the ":memory:" vector
// path and tests.
type Memory struct {
	mu      sync.RWMutex
	dims    int
	vectors map[string][]float32
}

// NewMemory returns an empty index for vectors of length dims.
func NewMemory(dims int) *Memory {
	return &Memory{dims: dims, vectors: make(map[string][]float32)}
}

// Upsert stores copies of the vectors.
func (m *Memory) Upsert(ctx context.Context, vectors []Vector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, v := range vectors {
		if err := checkDims(m.dims, v.Values); err != nil {
			return fmt.Errorf("vector %s: %w", v.ID, err)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vectors {
		m.vectors[v.ID] = slices.Clone(v.Values)
	}
	return nil
}

// Query scores every vector by cosine similarity.
func (m *Memory) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkDims(m.dims, vector); err != nil {
		return nil, err
	}

	m.mu.RLock()
	matches := make([]Match, 0, len(m.vectors))
	for id, v := range m.vectors {
		matches = append(matches, Match{ID: id, Score: cosine(vector, v)})
	}
	m.mu.RUnlock()

	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(matches) > topK {
		matches = matches[:max(topK, 0)]
	}
	return matches, nil
}

// Delete removes ids.
func (m *Memory) Delete(ctx context.Context, ids []string) error {
	if len(ids) > MaxDeleteBatch {
		return fmt.Errorf("%w: %d ids", ErrBatchTooLarge, len(ids))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.vectors, id)
	}
	return nil
}

// IDs lists stored ids in sorted order.
func (m *Memory) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.vectors))
	for id := range m.vectors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Count returns the number of stored vectors.
func (m *Memory) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors), nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
