// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/abdul-hamid-achik/veclite"

	"github.com/ap-aditya/srchive/pkg/types"
)

// payloadID is the payload key holding the paper id. veclite assigns its
// own numeric record ids.
const payloadID = "paper_id"

// VecLite is an Index backed by an embedded veclite database with an HNSW
// cosine index.
type VecLite struct {
	mu   sync.Mutex
	db   *veclite.DB
	coll *veclite.Collection
	dims int
}

// OpenVecLite opens or creates the database at cfg.Path and the named
// collection inside it.
func OpenVecLite(cfg types.VectorConfig, dims int) (*VecLite, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating vector directory: %w", err)
		}
	}
	name := cfg.Collection
	if name == "" {
		name = "papers"
	}

	db, err := veclite.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening veclite %s: %w", cfg.Path, err)
	}

	coll, err := db.CreateCollection(name,
		veclite.WithDimension(dims),
		veclite.WithDistanceType(veclite.DistanceCosine),
		veclite.WithHNSW(16, 200),
	)
	if err != nil {
		// Collection might already exist
		coll, err = db.GetCollection(name)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating collection %s: %w", name, err)
		}
	}

	return &VecLite{db: db, coll: coll, dims: dims}, nil
}

// Upsert replaces any existing vector for each id and persists the batch.
// When an id repeats within the batch the last vector wins.
func (v *VecLite) Upsert(ctx context.Context, vectors []Vector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, vec := range vectors {
		if err := checkDims(v.dims, vec.Values); err != nil {
			return fmt.Errorf("vector %s: %w", vec.ID, err)
		}
	}
	if len(vectors) == 0 {
		return nil
	}

	latest := make(map[string]int, len(vectors))
	for i, vec := range vectors {
		latest[vec.ID] = i
	}
	values := make([][]float32, 0, len(latest))
	payloads := make([]map[string]any, 0, len(latest))
	for i, vec := range vectors {
		if latest[vec.ID] != i {
			continue
		}
		values = append(values, vec.Values)
		payloads = append(payloads, map[string]any{payloadID: vec.ID})
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, err := v.coll.DeleteWhere(idFilter(latest)); err != nil {
		return fmt.Errorf("replacing %d vectors: %w", len(values), err)
	}
	if _, err := v.coll.InsertBatch(values, payloads); err != nil {
		return fmt.Errorf("inserting %d vectors: %w", len(values), err)
	}
	return v.db.Sync()
}

// Query runs an approximate nearest-neighbour search.
func (v *VecLite) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkDims(v.dims, vector); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	v.mu.Lock()
	results, err := v.coll.Search(vector, veclite.TopK(topK))
	v.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		id := payloadString(r.Record.Payload)
		if id == "" {
			continue
		}
		matches = append(matches, Match{ID: id, Score: float64(r.Score)})
	}
	return matches, nil
}

// Delete removes the vectors for ids in a single pass over the collection.
func (v *VecLite) Delete(ctx context.Context, ids []string) error {
	if len(ids) > MaxDeleteBatch {
		return fmt.Errorf("%w: %d ids", ErrBatchTooLarge, len(ids))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	set := make(map[string]int, len(ids))
	for i, id := range ids {
		set[id] = i
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, err := v.coll.DeleteWhere(idFilter(set)); err != nil {
		return fmt.Errorf("deleting %d vectors: %w", len(ids), err)
	}
	return v.db.Sync()
}

// idFilter matches records whose paper id is a key of ids.
func idFilter(ids map[string]int) veclite.Filter {
	return veclite.FilterFunc(func(r *veclite.Record) bool {
		_, ok := ids[payloadString(r.Payload)]
		return ok
	})
}

// IDs lists the paper ids of every stored record.
func (v *VecLite) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	records := v.coll.All()
	v.mu.Unlock()

	ids := make([]string, 0, len(records))
	for _, r := range records {
		if id := payloadString(r.Payload); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Count returns the number of stored records.
func (v *VecLite) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return int(v.coll.Count()), nil
}

// Close syncs and closes the database.
func (v *VecLite) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.db == nil {
		return nil
	}
	if err := v.db.Sync(); err != nil {
		_ = v.db.Close()
		return fmt.Errorf("syncing veclite: %w", err)
	}
	err := v.db.Close()
	v.db = nil
	return err
}

func payloadString(payload map[string]any) string {
	if s, ok := payload[payloadID].(string); ok {
		return s
	}
	return ""
}
