// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ap-aditya/srchive/internal/arxiv"
	"github.com/ap-aditya/srchive/internal/discovery"
	"github.com/ap-aditya/srchive/internal/store"
	"github.com/ap-aditya/srchive/internal/vectorindex"
	"github.com/ap-aditya/srchive/pkg/types"
)

const dims = 4

var anchor = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

// --- fakes ---

type fakeSource struct {
	papers     map[string]types.Paper
	windows    map[int][]types.Paper
	failWindow map[int]bool
	fetched    []string
	searched   []arxiv.SearchQuery
}

func (f *fakeSource) FetchByID(_ context.Context, id string) (types.Paper, error) {
	f.fetched = append(f.fetched, id)
	p, ok := f.papers[id]
	if !ok {
		return types.Paper{}, fmt.Errorf("%s: %w", id, arxiv.ErrNotFound)
	}
	return p, nil
}

func (f *fakeSource) Search(_ context.Context, q arxiv.SearchQuery) iter.Seq2[types.Paper, error] {
	f.searched = append(f.searched, q)
	k := int(anchor.Sub(q.To) / (7 * 24 * time.Hour))
	return func(yield func(types.Paper, error) bool) {
		if f.failWindow[k] {
			yield(types.Paper{}, errors.New("arXiv API returned HTTP 503"))
			return
		}
		for _, p := range f.windows[k] {
			if !yield(p, nil) {
				return
			}
		}
	}
}

type fakeEmbedder struct {
	fail map[string]bool
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.fail[text] {
		return nil, errors.New("ollama returned status 500")
	}
	return []float32{float32(len(text)), 1, 0, 0}, nil
}
func (e *fakeEmbedder) Model() string   { return "fake" }
func (e *fakeEmbedder) Dimensions() int { return dims }

type failingIndex struct {
	*vectorindex.Memory
}

func (failingIndex) Upsert(context.Context, []vectorindex.Vector) error {
	return errors.New("index unavailable")
}

func newPaper(id string) types.Paper {
	return types.Paper{
		ID:      id,
		Title:   "Paper " + id,
		Summary: "line one\nline two",
		Authors: "A. Author",
		PDFURL:  "https://arxiv.org/pdf/" + id,
	}
}

func openStore(t *testing.T) *store.SQL {
	t.Helper()
	st, err := store.Open(context.Background(), types.StoreConfig{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "papers.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newPipeline(t *testing.T, src *fakeSource) (*Pipeline, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return &Pipeline{
		Papers:   src,
		Embedder: &fakeEmbedder{},
		Index:    vectorindex.NewMemory(dims),
		Store:    openStore(t),
		Corpus: types.CorpusConfig{
			ClassicTarget:   10,
			RecentTarget:    10,
			BatchSize:       2,
			DeleteBatchSize: 1000,
			Categories:      "cat:cs.AI",
		},
		Arxiv: types.ArxivConfig{WindowDays: 7, MaxWindows: 5, MaxResultsPerWindow: 100},
		W:     &buf,
		Now:   func() time.Time { return anchor },
	}, &buf
}

func storedIDs(t *testing.T, p *Pipeline) []string {
	t.Helper()
	ids, err := p.Store.AllIDs(context.Background())
	require.NoError(t, err)
	return ids
}

// --- classic mode ---

func TestIngestClassic(t *testing.T) {
	src := &fakeSource{papers: map[string]types.Paper{
		"a": newPaper("a"), "b": newPaper("b"), "d": newPaper("d"),
	}}
	p, buf := newPipeline(t, src)
	ctx := context.Background()

	processed := ProcessedSet{"b": {}}
	processed, sum, err := p.IngestClassic(ctx, discovery.NewIDSet("d", "c", "b", "a"), processed)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c", "d"}, src.fetched, "processed ids are not fetched; order is sorted")
	assert.Equal(t, 3, sum.Candidates)
	assert.Equal(t, 2, sum.Staged)
	assert.Equal(t, 1, sum.Skipped)
	assert.True(t, processed.Has("a"))
	assert.False(t, processed.Has("c"), "not-found ids stay unprocessed")

	assert.Equal(t, []string{"a", "d"}, storedIDs(t, p))
	n, err := p.Index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := p.Store.FindByIDs(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, types.PaperClassic, got["a"].Type)
	assert.Equal(t, "line one line two", got["a"].Summary)
	assert.Equal(t, anchor, got["a"].IngestedAt)
	assert.Contains(t, buf.String(), "Classic ingestion complete: 2 staged, 1 skipped, 0 failed")
}

func TestIngestClassicStopsAtTarget(t *testing.T) {
	src := &fakeSource{papers: map[string]types.Paper{}}
	candidates := discovery.NewIDSet()
	for i := range 5 {
		id := fmt.Sprintf("2001.%05d", i)
		src.papers[id] = newPaper(id)
		candidates.Add(id)
	}
	p, _ := newPipeline(t, src)
	p.Corpus.ClassicTarget = 3

	_, sum, err := p.IngestClassic(context.Background(), candidates, ProcessedSet{})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Staged)
	assert.Len(t, storedIDs(t, p), 3, "remainder below batch size is flushed at the end")
}

func TestIngestClassicNothingNew(t *testing.T) {
	p, buf := newPipeline(t, &fakeSource{})
	_, sum, err := p.IngestClassic(context.Background(), discovery.NewIDSet("a"), ProcessedSet{"a": {}})
	require.NoError(t, err)
	assert.Zero(t, sum.Staged)
	assert.Contains(t, buf.String(), "No new classic papers")
}

func TestIngestClassicEmbedFailure(t *testing.T) {
	src := &fakeSource{papers: map[string]types.Paper{"a": newPaper("a"), "b": newPaper("b")}}
	p, _ := newPipeline(t, src)
	p.Embedder = &fakeEmbedder{fail: map[string]bool{newPaper("a").EmbeddingText(): true}}

	processed, sum, err := p.IngestClassic(context.Background(), discovery.NewIDSet("a", "b"), ProcessedSet{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.False(t, processed.Has("a"))
	assert.Equal(t, []string{"b"}, storedIDs(t, p))
}

func TestIngestClassicFlushFailure(t *testing.T) {
	src := &fakeSource{papers: map[string]types.Paper{"a": newPaper("a"), "b": newPaper("b"), "c": newPaper("c")}}
	p, _ := newPipeline(t, src)
	p.Index = failingIndex{vectorindex.NewMemory(dims)}

	processed, sum, err := p.IngestClassic(context.Background(), discovery.NewIDSet("a", "b", "c"), ProcessedSet{"z": {}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")
	assert.Equal(t, 1, sum.Staged, "the paper whose flush failed is not counted")
	assert.Empty(t, storedIDs(t, p), "metadata is not written when the vector write fails")
	assert.Equal(t, ProcessedSet{"z": {}}, processed, "ids of the failed batch are not marked processed")
}

func TestIngestRecentRetriesPapersFromFailedFlush(t *testing.T) {
	src := &fakeSource{windows: map[int][]types.Paper{0: {newPaper("r1")}}}
	p, _ := newPipeline(t, src)
	p.Index = failingIndex{vectorindex.NewMemory(dims)}

	processed, _, err := p.IngestRecent(context.Background(), ProcessedSet{})
	require.Error(t, err)
	assert.False(t, processed.Has("r1"))
}

// --- recent mode ---

func TestIngestRecentAdvancesPastEmptyWindow(t *testing.T) {
	src := &fakeSource{windows: map[int][]types.Paper{
		0: {newPaper("old-1"), newPaper("old-2")},
		1: {newPaper("new-1"), newPaper("new-2"), newPaper("new-3")},
	}}
	p, buf := newPipeline(t, src)
	p.Corpus.RecentTarget = 3

	processed := ProcessedSet{"old-1": {}, "old-2": {}}
	processed, sum, err := p.IngestRecent(context.Background(), processed)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Staged)
	assert.Equal(t, 2, sum.Windows)
	assert.Zero(t, sum.Shortfall)
	assert.True(t, processed.Has("new-3"))
	assert.Contains(t, buf.String(), "20250623-20250630: no new papers, searching further back")
	assert.Equal(t, []string{"new-1", "new-2", "new-3"}, storedIDs(t, p))

	require.Len(t, src.searched, 2)
	q := src.searched[1]
	assert.Equal(t, "cat:cs.AI", q.Categories)
	assert.Equal(t, anchor.Add(-7*24*time.Hour), q.To)
	assert.Equal(t, anchor.Add(-14*24*time.Hour), q.From)
	assert.Equal(t, 100, q.MaxResults)
}

func TestIngestRecentSkipsFailedWindow(t *testing.T) {
	src := &fakeSource{
		failWindow: map[int]bool{0: true},
		windows:    map[int][]types.Paper{1: {newPaper("x")}},
	}
	p, _ := newPipeline(t, src)
	p.Corpus.RecentTarget = 1

	_, sum, err := p.IngestRecent(context.Background(), ProcessedSet{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FailedWindows)
	assert.Equal(t, 1, sum.Staged)
	assert.True(t, sum.HasFailures())
}

func TestIngestRecentReportsShortfall(t *testing.T) {
	src := &fakeSource{windows: map[int][]types.Paper{0: {newPaper("x")}}}
	p, buf := newPipeline(t, src)
	p.Arxiv.MaxWindows = 3

	_, sum, err := p.IngestRecent(context.Background(), ProcessedSet{})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Windows)
	assert.Equal(t, 9, sum.Shortfall)
	assert.Contains(t, buf.String(), "9 short of target")
}

func TestIngestRecentDoesNotRetypeClassic(t *testing.T) {
	src := &fakeSource{
		papers:  map[string]types.Paper{"1706.03762": newPaper("1706.03762")},
		windows: map[int][]types.Paper{0: {newPaper("1706.03762")}},
	}
	p, _ := newPipeline(t, src)
	ctx := context.Background()

	_, _, err := p.IngestClassic(ctx, discovery.NewIDSet("1706.03762"), ProcessedSet{})
	require.NoError(t, err)

	// A fresh processed set lets recent mode re-stage the same id.
	_, sum, err := p.IngestRecent(ctx, ProcessedSet{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Staged)

	got, err := p.Store.FindByIDs(ctx, []string{"1706.03762"})
	require.NoError(t, err)
	assert.Equal(t, types.PaperClassic, got["1706.03762"].Type)
	n, err := p.Store.Count(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// --- batch ---

func TestStagedBatchFlushesAtThreshold(t *testing.T) {
	idx := vectorindex.NewMemory(dims)
	st := openStore(t)
	b := NewStagedBatch(idx, st, 2)
	ctx := context.Background()
	vec := []float32{1, 0, 0, 0}

	require.NoError(t, b.Add(ctx, newPaper("a"), vec))
	assert.Equal(t, 1, b.Len())
	require.NoError(t, b.Add(ctx, newPaper("b"), vec))
	assert.Zero(t, b.Len())
	assert.Equal(t, 2, b.Flushed)

	require.NoError(t, b.Add(ctx, newPaper("c"), vec))
	require.NoError(t, b.Flush(ctx))
	require.NoError(t, b.Flush(ctx), "flushing an empty batch is a no-op")
	assert.Equal(t, 3, b.Flushed)
}

func TestStagedBatchFlushErrorListsIDs(t *testing.T) {
	b := NewStagedBatch(failingIndex{vectorindex.NewMemory(dims)}, openStore(t), 10)
	ctx := context.Background()
	vec := []float32{1, 0, 0, 0}

	require.NoError(t, b.Add(ctx, newPaper("a"), vec))
	require.NoError(t, b.Add(ctx, newPaper("b"), vec))
	err := b.Flush(ctx)

	var fe *FlushError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{"a", "b"}, fe.IDs)
	assert.Zero(t, b.Len())
	assert.Zero(t, b.Flushed)
}

func TestLoadProcessed(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.BulkUpsert(ctx, []types.Paper{newPaper("a"), newPaper("b")}))

	s, err := LoadProcessed(ctx, st)
	require.NoError(t, err)
	assert.True(t, s.Has("a"))
	assert.True(t, s.Has("b"))
	assert.False(t, s.Has("c"))
}

// --- repair ---

func TestRepair(t *testing.T) {
	p, buf := newPipeline(t, &fakeSource{})
	ctx := context.Background()

	both := newPaper("both")
	both.Type = types.PaperRecent
	orphanRec := newPaper("rec-only")
	orphanRec.Type = types.PaperClassic
	require.NoError(t, p.Store.BulkUpsert(ctx, []types.Paper{both, orphanRec}))
	require.NoError(t, p.Index.Upsert(ctx, []vectorindex.Vector{
		{ID: "both", Values: []float32{1, 0, 0, 0}},
		{ID: "vec-only", Values: []float32{0, 1, 0, 0}},
	}))

	rep, err := p.Repair(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.OrphanVectors)
	assert.Equal(t, 1, rep.OrphanRecords)
	ids, err := p.Index.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"both", "vec-only"}, ids, "dry run writes nothing")

	rep, err = p.Repair(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Reembedded)

	ids, err = p.Index.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"both", "rec-only"}, ids)
	assert.Equal(t, []string{"both", "rec-only"}, storedIDs(t, p))
	assert.Contains(t, buf.String(), "Repair complete")

	got, err := p.Store.FindByIDs(ctx, []string{"rec-only"})
	require.NoError(t, err)
	assert.Equal(t, types.PaperClassic, got["rec-only"].Type)
}
