// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ap-aditya/srchive/internal/query"
	"github.com/ap-aditya/srchive/internal/store"
	"github.com/ap-aditya/srchive/internal/vectorindex"
	"github.com/ap-aditya/srchive/pkg/types"
)

type stubSearcher struct {
	out   query.Output
	err   error
	calls []string
}

func (s *stubSearcher) Search(_ context.Context, raw string) (query.Output, error) {
	s.calls = append(s.calls, raw)
	if raw == "" {
		return query.Output{}, query.ErrEmptyQuery
	}
	return s.out, s.err
}

func hit(id, title string, typ types.PaperType, score float64) types.SearchHit {
	return types.SearchHit{
		Paper: types.Paper{ID: id, Title: title, Type: typ},
		Score: score,
		Query: "q",
	}
}

func newTestServer(t *testing.T, s *stubSearcher) (*httptest.Server, *store.SQL, *vectorindex.Memory) {
	t.Helper()
	st, err := store.Open(context.Background(), types.StoreConfig{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "papers.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx := vectorindex.NewMemory(2)
	srv := &Server{Searcher: s, Store: st, Index: idx}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st, idx
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubSearcher{})

	var body map[string]string
	status := getJSON(t, ts.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestSearch_FilterAndSort(t *testing.T) {
	s := &stubSearcher{out: query.Output{
		Queries: []string{"transformers"},
		Hits: []types.SearchHit{
			hit("2401.00001", "Zeta", types.PaperRecent, 0.9),
			hit("1706.03762", "Attention", types.PaperClassic, 0.8),
			hit("2401.00002", "Alpha", types.PaperRecent, 0.7),
		},
	}}
	ts, _, _ := newTestServer(t, s)

	var out query.Output
	status := getJSON(t, ts.URL+"/api/search?q=transformers&type=recent&sort=title", &out)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, out.Hits, 2)
	assert.Equal(t, "Alpha", out.Hits[0].Title)
	assert.Equal(t, "Zeta", out.Hits[1].Title)
	assert.Equal(t, []string{"transformers"}, s.calls)
}

func TestSearch_NoHitsEncodesEmptyList(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubSearcher{})

	resp, err := http.Get(ts.URL + "/api/search?q=nothing")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, "[]", string(raw["hits"]))
}

func TestSearch_BadRequests(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubSearcher{})

	for _, path := range []string{
		"/api/search",
		"/api/search?q=x&type=archived",
		"/api/search?q=x&sort=date",
	} {
		var body errorResponse
		status := getJSON(t, ts.URL+path, &body)
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.NotEmpty(t, body.Error, path)
	}
}

func TestSearch_EngineFailure(t *testing.T) {
	ts, _, _ := newTestServer(t, &stubSearcher{err: assert.AnError})

	var body errorResponse
	status := getJSON(t, ts.URL+"/api/search?q=x", &body)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "search failed", body.Error)
}

func TestStats(t *testing.T) {
	ts, st, idx := newTestServer(t, &stubSearcher{})
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, st.BulkUpsert(ctx, []types.Paper{
		{ID: "1", Title: "a", Type: types.PaperClassic, IngestedAt: now},
		{ID: "2", Title: "b", Type: types.PaperRecent, IngestedAt: now},
		{ID: "3", Title: "c", Type: types.PaperRecent, IngestedAt: now},
	}))
	require.NoError(t, idx.Upsert(ctx, []vectorindex.Vector{
		{ID: "1", Values: []float32{1, 0}},
		{ID: "2", Values: []float32{0, 1}},
	}))

	var body StatsResponse
	status := getJSON(t, ts.URL+"/api/stats", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 1, body.ByType[types.PaperClassic])
	assert.Equal(t, 2, body.ByType[types.PaperRecent])
	assert.Equal(t, 2, body.Vectors)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	_, st, idx := newTestServer(t, &stubSearcher{})

	srv := &Server{Searcher: &stubSearcher{}, Store: st, Index: idx}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
