// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ap-aditya/srchive/internal/store"
	"github.com/ap-aditya/srchive/internal/vectorindex"
	"github.com/ap-aditya/srchive/pkg/types"
)

type fakeInvalidator struct {
	calls  int
	closed bool
}

func (f *fakeInvalidator) InvalidateAll(context.Context) (int, error) {
	f.calls++
	return 3, nil
}

func (f *fakeInvalidator) Close() error {
	f.closed = true
	return nil
}

// useTestCorpus points the global config at a temp SQLite store and an
// in-process vector index, seeds recent papers, and swaps in a fake cache.
func useTestCorpus(t *testing.T, recent int) *fakeInvalidator {
	t.Helper()
	saved, savedOpen := cfg, openInvalidator
	t.Cleanup(func() { cfg, openInvalidator = saved, savedOpen })

	cfg = types.DefaultConfig()
	cfg.Store.DSN = filepath.Join(t.TempDir(), "papers.db")
	cfg.Vector.Path = vectorindex.MemoryPath
	cfg.Embedding.Dimensions = 4

	st, err := store.Open(context.Background(), cfg.Store)
	require.NoError(t, err)
	var papers []types.Paper
	for i := range recent {
		papers = append(papers, types.Paper{
			ID:         fmt.Sprintf("2401.%05d", i),
			Title:      fmt.Sprintf("Paper %d", i),
			Summary:    "abstract",
			Type:       types.PaperRecent,
			IngestedAt: time.Date(2025, 1, 1, 0, i, 0, 0, time.UTC),
		})
	}
	require.NoError(t, st.BulkUpsert(context.Background(), papers))
	require.NoError(t, st.Close())

	inv := &fakeInvalidator{}
	openInvalidator = func(context.Context) resultInvalidator { return inv }
	return inv
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.Flags().Bool("dry-run", false, "")
	return cmd, &buf
}

func TestRetainInvalidatesCacheAfterEviction(t *testing.T) {
	inv := useTestCorpus(t, 3)
	cfg.Corpus.MaxItems = 1

	cmd, buf := testCommand()
	require.NoError(t, runRetain(cmd, nil))
	assert.Contains(t, buf.String(), "Deleting 2 old non-classic papers")
	assert.Equal(t, 1, inv.calls)
	assert.True(t, inv.closed)
}

func TestRetainLeavesCacheWithinCap(t *testing.T) {
	inv := useTestCorpus(t, 3)

	cmd, _ := testCommand()
	require.NoError(t, runRetain(cmd, nil))
	assert.Zero(t, inv.calls)
}

func ollamaStub(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			fmt.Fprintf(w, `{"models":[{"name":%q}]}`, cfg.Embedding.Model)
		case "/api/embeddings":
			vec := make([]float32, dims)
			vec[0] = 1
			json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRepairInvalidatesCacheAfterWrites(t *testing.T) {
	inv := useTestCorpus(t, 2)
	cfg.Embedding.URL = ollamaStub(t, 4).URL

	cmd, buf := testCommand()
	require.NoError(t, runRepair(cmd, nil))
	assert.Contains(t, buf.String(), "2 vectors restored")
	assert.Equal(t, 1, inv.calls)
}

func TestRepairDryRunKeepsCache(t *testing.T) {
	inv := useTestCorpus(t, 2)

	cmd, buf := testCommand()
	require.NoError(t, cmd.Flags().Set("dry-run", "true"))
	require.NoError(t, runRepair(cmd, nil))
	assert.Contains(t, buf.String(), "Dry run")
	assert.Zero(t, inv.calls)
}

func TestDropCachedResultsWithoutCache(t *testing.T) {
	saved := openInvalidator
	t.Cleanup(func() { openInvalidator = saved })
	openInvalidator = func(context.Context) resultInvalidator { return nil }

	assert.NotPanics(t, func() { dropCachedResults(context.Background()) })
}
