// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv is the paper repository client: single-paper lookup by
// identifier and lazily paged, date-windowed searches over the arXiv API.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ap-aditya/srchive/internal/httputil"
	"github.com/ap-aditya/srchive/pkg/types"
)

// apiBase is the arXiv query endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://export.arxiv.org/api/query"

// ErrNotFound is returned by FetchByID when arXiv has no entry for the id.
var ErrNotFound = errors.New("arxiv: paper not found")

// Client talks to the arXiv API. All calls share one rate limiter so that
// lookups and searches together respect the configured page delay.
type Client struct {
	HTTP    *http.Client
	Config  types.ArxivConfig
	Policy  httputil.Policy
	limiter *rate.Limiter
}

// NewClient returns a client with a limiter derived from cfg.PageDelay.
// A zero delay disables limiting.
func NewClient(hc *http.Client, cfg types.ArxivConfig) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.MaxResultsPerWindow <= 0 {
		cfg.MaxResultsPerWindow = 5000
	}
	limit := rate.Inf
	if cfg.PageDelay > 0 {
		limit = rate.Every(cfg.PageDelay)
	}
	return &Client{
		HTTP:   hc,
		Config: cfg,
		Policy: httputil.Policy{
			MaxAttempts: cfg.MaxRetries,
			RetryDelay:  cfg.PageDelay,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// FetchByID looks up a single paper. It returns ErrNotFound when the feed
// carries no usable entry for id.
func (c *Client) FetchByID(ctx context.Context, id string) (types.Paper, error) {
	params := url.Values{
		"id_list":     {id},
		"max_results": {"1"},
	}
	feed, err := c.get(ctx, params)
	if err != nil {
		return types.Paper{}, fmt.Errorf("fetching %s: %w", id, err)
	}
	for _, e := range feed.Entries {
		if p, ok := e.paper(); ok {
			return p, nil
		}
	}
	return types.Paper{}, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// SearchQuery selects papers by category filter and submission date.
type SearchQuery struct {
	// Categories is an arXiv boolean category expression, e.g. "cat:cs.AI OR cat:cs.LG".
	Categories string

	// From and To bound submittedDate (inclusive, day resolution).
	From time.Time
	To   time.Time

	// MaxResults caps the number of entries read. Zero uses the configured
	// per-window maximum.
	MaxResults int
}

// String renders the arXiv search_query expression.
func (q SearchQuery) String() string {
	return fmt.Sprintf("(%s) AND submittedDate:[%s TO %s]",
		q.Categories, q.From.UTC().Format("20060102"), q.To.UTC().Format("20060102"))
}

// Search streams papers matching q newest-first, fetching pages on demand.
// A request failure is yielded once as an error and ends the sequence.
func (c *Client) Search(ctx context.Context, q SearchQuery) iter.Seq2[types.Paper, error] {
	return func(yield func(types.Paper, error) bool) {
		limit := q.MaxResults
		if limit <= 0 {
			limit = c.Config.MaxResultsPerWindow
		}

		for start := 0; start < limit; {
			size := min(c.Config.PageSize, limit-start)
			params := url.Values{
				"search_query": {q.String()},
				"sortBy":       {"submittedDate"},
				"sortOrder":    {"descending"},
				"start":        {strconv.Itoa(start)},
				"max_results":  {strconv.Itoa(size)},
			}

			feed, err := c.get(ctx, params)
			if err != nil {
				yield(types.Paper{}, fmt.Errorf("searching %s at offset %d: %w", q, start, err))
				return
			}

			for _, e := range feed.Entries {
				p, ok := e.paper()
				if !ok {
					continue
				}
				if !yield(p, nil) {
					return
				}
			}

			if len(feed.Entries) < size {
				return
			}
			start += len(feed.Entries)
		}
	}
}

func (c *Client) get(ctx context.Context, params url.Values) (*feed, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.Config.UserAgent != "" {
		req.Header.Set("User-Agent", c.Config.UserAgent)
	}

	resp, err := httputil.Do(ctx, c.HTTP, req, c.Policy)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return &f, nil
}
