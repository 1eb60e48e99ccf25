// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorindex

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ap-aditya/srchive/pkg/types"
)

func unit(dims, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

// indexContract exercises behaviour every Index must share.
func indexContract(t *testing.T, idx Index) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Vector{
		{ID: "a", Values: unit(4, 0)},
		{ID: "b", Values: unit(4, 1)},
		{ID: "c", Values: []float32{0.9, 0.1, 0, 0}},
	}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err := idx.Query(ctx, unit(4, 0), 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "c", matches[1].ID)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)

	// Re-upserting an id replaces it rather than adding a second vector.
	require.NoError(t, idx.Upsert(ctx, []Vector{{ID: "a", Values: unit(4, 2)}}))
	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err = idx.Query(ctx, unit(4, 2), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)

	require.NoError(t, idx.Delete(ctx, []string{"a", "missing"}))
	ids, err := idx.IDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, ids)

	err = idx.Upsert(ctx, []Vector{{ID: "bad", Values: []float32{1}}})
	assert.ErrorIs(t, err, ErrDimension)

	tooMany := make([]string, MaxDeleteBatch+1)
	assert.ErrorIs(t, idx.Delete(ctx, tooMany), ErrBatchTooLarge)
}

// bulkContract checks batch-level upsert and delete.
func bulkContract(t *testing.T, idx Index) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Vector{
		{ID: "dup", Values: unit(4, 0)},
		{ID: "dup", Values: unit(4, 3)},
	}))
	matches, err := idx.Query(ctx, unit(4, 3), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "dup", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6, "the last vector for a repeated id wins")

	vectors := make([]Vector, 1200)
	ids := make([]string, len(vectors))
	for i := range vectors {
		ids[i] = fmt.Sprintf("p%04d", i)
		vectors[i] = Vector{ID: ids[i], Values: unit(4, i%4)}
	}
	require.NoError(t, idx.Upsert(ctx, vectors))

	require.NoError(t, idx.Delete(ctx, ids[:MaxDeleteBatch]))
	left, err := idx.IDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, append([]string{"dup"}, ids[MaxDeleteBatch:]...), left)
}

func TestMemoryIndex(t *testing.T) {
	indexContract(t, NewMemory(4))
	bulkContract(t, NewMemory(4))
}

func TestVecLiteBulk(t *testing.T) {
	cfg := types.VectorConfig{Path: filepath.Join(t.TempDir(), "bulk.veclite"), Collection: "papers"}
	idx, err := OpenVecLite(cfg, 4)
	require.NoError(t, err)
	defer idx.Close()
	bulkContract(t, idx)
}

func TestVecLiteIndex(t *testing.T) {
	cfg := types.VectorConfig{Path: filepath.Join(t.TempDir(), "vec", "papers.veclite"), Collection: "papers"}
	idx, err := OpenVecLite(cfg, 4)
	require.NoError(t, err)
	indexContract(t, idx)
	require.NoError(t, idx.Close())

	// Data survives a reopen.
	idx, err = OpenVecLite(cfg, 4)
	require.NoError(t, err)
	defer idx.Close()
	ids, err := idx.IDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, ids)
}

func TestOpenMemoryPath(t *testing.T) {
	idx, err := Open(types.VectorConfig{Path: MemoryPath}, 4)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, idx)
}

type recordingIndex struct {
	*Memory
	batches [][]string
	failAt  int
}

func (r *recordingIndex) Delete(ctx context.Context, ids []string) error {
	if r.failAt > 0 && len(r.batches)+1 == r.failAt {
		return fmt.Errorf("backend unavailable")
	}
	r.batches = append(r.batches, append([]string(nil), ids...))
	return r.Memory.Delete(ctx, ids)
}

func TestDeleteBatched(t *testing.T) {
	ids := make([]string, 2500)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%04d", i)
	}

	idx := &recordingIndex{Memory: NewMemory(2)}
	done, err := DeleteBatched(context.Background(), idx, ids, 1000)
	require.NoError(t, err)
	assert.Equal(t, 2500, done)
	require.Len(t, idx.batches, 3)
	assert.Len(t, idx.batches[0], 1000)
	assert.Len(t, idx.batches[2], 500)

	idx = &recordingIndex{Memory: NewMemory(2), failAt: 2}
	done, err = DeleteBatched(context.Background(), idx, ids, 0)
	require.Error(t, err)
	assert.Equal(t, 1000, done)
}
