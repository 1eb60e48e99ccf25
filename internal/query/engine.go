// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query answers free-text searches over the corpus. A raw input may
// hold several sub-queries; each is embedded and matched independently and
// the hits are merged into one ranked list.
package query

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ap-aditya/srchive/internal/embed"
	"github.com/ap-aditya/srchive/internal/store"
	"github.com/ap-aditya/srchive/internal/vectorindex"
	"github.com/ap-aditya/srchive/pkg/types"
)

// ErrEmptyQuery is returned when the input holds no non-blank sub-query.
var ErrEmptyQuery = errors.New("empty query")

// QueryError records a sub-query that could not be answered.
type QueryError struct {
	Query string `json:"query" yaml:"query"`
	Error string `json:"error" yaml:"error"`
}

// Output is the merged result of one search.
type Output struct {
	Queries []string          `json:"queries" yaml:"queries"`
	Hits    []types.SearchHit `json:"hits" yaml:"hits"`
	Errors  []QueryError      `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Cache stores complete outputs keyed by the normalized sub-query list.
type Cache interface {
	Get(ctx context.Context, queries []string) (Output, bool)
	Set(ctx context.Context, queries []string, out Output)
}

// Engine runs searches. It holds no mutable state and is safe for
// concurrent use when its dependencies are.
type Engine struct {
	Embedder embed.Provider
	Index    vectorindex.Index
	Store    store.Store
	Config   types.SearchConfig

	// Cache is optional.
	Cache Cache
}

// SplitQueries splits raw on sep, trims each part and drops blanks.
func SplitQueries(raw, sep string) []string {
	if sep == "" {
		sep = ";"
	}
	var out []string
	for _, q := range strings.Split(raw, sep) {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// Search answers raw. A failing sub-query is recorded in Output.Errors and
// the rest still run. When two sub-queries return the same paper the first
// occurrence, with its score, is kept. Hits are ordered by descending score
// and capped at the configured maximum.
func (e *Engine) Search(ctx context.Context, raw string) (Output, error) {
	queries := SplitQueries(raw, e.Config.Separator)
	if len(queries) == 0 {
		return Output{}, ErrEmptyQuery
	}

	if e.Cache != nil {
		if out, ok := e.Cache.Get(ctx, queries); ok {
			return out, nil
		}
	}

	topK := e.Config.TopK
	if topK <= 0 {
		topK = 15
	}
	limit := e.Config.MaxResults
	if limit <= 0 {
		limit = 25
	}

	out := Output{Queries: queries}
	seen := make(map[string]struct{})
	for _, q := range queries {
		hits, err := e.searchOne(ctx, q, topK)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			slog.Warn("sub-query failed", "query", q, "error", err)
			out.Errors = append(out.Errors, QueryError{Query: q, Error: err.Error()})
			continue
		}
		for _, h := range hits {
			if _, dup := seen[h.ID]; dup {
				continue
			}
			seen[h.ID] = struct{}{}
			out.Hits = append(out.Hits, h)
		}
	}

	SortByScore(out.Hits)
	if len(out.Hits) > limit {
		out.Hits = out.Hits[:limit]
	}

	if e.Cache != nil && len(out.Errors) == 0 {
		e.Cache.Set(ctx, queries, out)
	}
	return out, nil
}

func (e *Engine) searchOne(ctx context.Context, q string, topK int) ([]types.SearchHit, error) {
	vec, err := e.Embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	matches, err := e.Index.Query(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	records, err := e.Store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading metadata: %w", err)
	}

	hits := make([]types.SearchHit, 0, len(matches))
	for _, m := range matches {
		p, ok := records[m.ID]
		if !ok {
			slog.Debug("vector without metadata", "id", m.ID)
			continue
		}
		hits = append(hits, types.SearchHit{Paper: p, Score: m.Score, Query: q})
	}
	return hits, nil
}

// FilterByType returns the hits of type typ. An empty type keeps all hits.
func FilterByType(hits []types.SearchHit, typ types.PaperType) []types.SearchHit {
	if typ == "" {
		return hits
	}
	var out []types.SearchHit
	for _, h := range hits {
		if h.Type == typ {
			out = append(out, h)
		}
	}
	return out
}

// SortByScore orders hits by descending score, keeping merge order on ties.
func SortByScore(hits []types.SearchHit) {
	slices.SortStableFunc(hits, func(a, b types.SearchHit) int {
		return cmp.Compare(b.Score, a.Score)
	})
}

// SortByTitle orders hits alphabetically by title, case-insensitively.
func SortByTitle(hits []types.SearchHit) {
	slices.SortStableFunc(hits, func(a, b types.SearchHit) int {
		return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	})
}
