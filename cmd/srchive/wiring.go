// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ap-aditya/srchive/internal/arxiv"
	"github.com/ap-aditya/srchive/internal/discovery"
	"github.com/ap-aditya/srchive/internal/embed"
	"github.com/ap-aditya/srchive/internal/query"
	"github.com/ap-aditya/srchive/internal/store"
	"github.com/ap-aditya/srchive/internal/vectorindex"
	"github.com/ap-aditya/srchive/pkg/types"
)

// corpus bundles the two stores every command works against.
type corpus struct {
	store store.Store
	index vectorindex.Index
}

func (c *corpus) Close() {
	if err := c.index.Close(); err != nil {
		slog.Warn("closing vector index", "error", err)
	}
	if err := c.store.Close(); err != nil {
		slog.Warn("closing metadata store", "error", err)
	}
}

// openCorpus opens the metadata store and the vector index. Either failing
// is fatal.
func openCorpus(ctx context.Context) (*corpus, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}
	idx, err := vectorindex.Open(cfg.Vector, cfg.Embedding.Dimensions)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
	return &corpus{store: st, index: idx}, nil
}

// newEmbedder connects to Ollama and verifies the model is available. The
// query path wraps it in an in-memory cache.
func newEmbedder(ctx context.Context, cached bool) (embed.Provider, error) {
	ec := cfg.Embedding
	p := embed.NewOllamaProvider(
		embed.WithBaseURL(ec.URL),
		embed.WithModel(ec.Model),
		embed.WithDimensions(ec.Dimensions),
		embed.WithTimeout(ec.Timeout),
	)
	if err := p.Ping(ctx); err != nil {
		return nil, fmt.Errorf("embedding service unavailable: %w", err)
	}
	if !cached {
		return p, nil
	}
	return embed.WithCache(p, ec.CacheSize), nil
}

// openResultCache connects to Redis when configured. An unreachable Redis
// disables caching rather than failing the command.
func openResultCache(ctx context.Context) *query.RedisCache {
	if cfg.Redis.URL == "" {
		return nil
	}
	c, err := query.NewRedisCache(cfg.Redis.URL, cfg.Redis.TTL)
	if err != nil {
		slog.Warn("query cache disabled", "error", err)
		return nil
	}
	if err := c.Ping(ctx); err != nil {
		slog.Warn("query cache disabled", "error", err)
		c.Close()
		return nil
	}
	c.Scope = fmt.Sprintf("%s|%d|%d", cfg.Embedding.Model, cfg.Search.TopK, cfg.Search.MaxResults)
	return c
}

// resultInvalidator drops cached query results.
type resultInvalidator interface {
	InvalidateAll(ctx context.Context) (int, error)
	Close() error
}

// openInvalidator returns the configured query cache, or nil when there is none.
var openInvalidator = func(ctx context.Context) resultInvalidator {
	if c := openResultCache(ctx); c != nil {
		return c
	}
	return nil
}

// dropCachedResults clears cached searches after a command changed the
// corpus. Failures are logged; stale entries expire with their TTL.
func dropCachedResults(ctx context.Context) {
	inv := openInvalidator(ctx)
	if inv == nil {
		return
	}
	defer inv.Close()
	n, err := inv.InvalidateAll(ctx)
	if err != nil {
		slog.Warn("could not invalidate query cache", "error", err)
		return
	}
	slog.Debug("invalidated cached query results", "keys", n)
}

func newEngine(emb embed.Provider, c *corpus, cache *query.RedisCache) *query.Engine {
	e := &query.Engine{
		Embedder: emb,
		Index:    c.index,
		Store:    c.store,
		Config:   cfg.Search,
	}
	if cache != nil {
		e.Cache = cache
	}
	return e
}

func newArxivClient() *arxiv.Client {
	return arxiv.NewClient(&http.Client{Timeout: cfg.Arxiv.Timeout}, cfg.Arxiv)
}

// newDiscoverer assembles the classic candidate sources: curated lists,
// Semantic Scholar, and OpenAlex when enabled.
func newDiscoverer(hc *http.Client, d types.DiscoveryConfig) *discovery.Discoverer {
	disc := &discovery.Discoverer{
		Curated: &discovery.CuratedSource{
			Client:    hc,
			URLs:      d.CuratedURLs,
			Timeout:   d.CuratedTimeout,
			UserAgent: d.UserAgent,
		},
		Ranked: []discovery.Source{
			discovery.NewSemanticScholarSource(hc, d, cfg.Corpus.Categories),
		},
	}
	if d.EnableOpenAlex {
		disc.Ranked = append(disc.Ranked, discovery.NewOpenAlexSource(hc, d))
	}
	return disc
}
