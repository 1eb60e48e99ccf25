// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/ap-aditya/srchive/internal/arxiv"
	"github.com/ap-aditya/srchive/internal/httputil"
	"github.com/ap-aditya/srchive/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

// SemanticScholarSource pages through Semantic Scholar search results
// ordered by citation count and keeps the papers that have an arXiv id.
type SemanticScholarSource struct {
	Client    *http.Client
	APIKey    string
	UserAgent string

	// Query is the free-text search, usually the category list without
	// the "cat:" prefixes.
	Query string

	PageSize  int
	MaxOffset int
	Policy    httputil.Policy

	limiter *rate.Limiter
}

// NewSemanticScholarSource builds a source from discovery settings. The
// category expression is rewritten into a plain query string.
func NewSemanticScholarSource(hc *http.Client, cfg types.DiscoveryConfig, categories string) *SemanticScholarSource {
	limit := rate.Inf
	if cfg.PageDelay > 0 {
		limit = rate.Every(cfg.PageDelay)
	}
	return &SemanticScholarSource{
		Client:    hc,
		APIKey:    cfg.SemanticScholarAPIKey,
		UserAgent: cfg.UserAgent,
		Query:     "(" + strings.ReplaceAll(categories, "cat:", "") + ")",
		PageSize:  cfg.PageSize,
		MaxOffset: cfg.MaxOffset,
		Policy: httputil.Policy{
			MaxAttempts:       cfg.MaxRetries,
			RateLimitCooldown: cfg.RateLimitCooldown,
			RetryDelay:        cfg.RetryDelay,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Name returns the source identifier.
func (s *SemanticScholarSource) Name() string { return "semantic_scholar" }

// Discover collects up to n arXiv ids. It stops at n, at an empty page, once
// the offset passes MaxOffset, or when a page cannot be fetched. The last
// case returns the page error alongside the ids gathered so far.
func (s *SemanticScholarSource) Discover(ctx context.Context, n int) (Result, error) {
	res := Result{Source: s.Name(), IDs: make(IDSet)}
	if n <= 0 {
		return res, nil
	}

	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	maxOffset := s.MaxOffset
	if maxOffset <= 0 {
		maxOffset = 9900
	}
	limiter := s.limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	for offset := 0; len(res.IDs) < n; offset += pageSize {
		if offset > maxOffset {
			slog.Info("reached Semantic Scholar result limit", "offset", offset)
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			return res, err
		}

		page, err := s.fetchPage(ctx, offset, pageSize)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{Target: "offset=" + strconv.Itoa(offset), Err: err})
			return res, err
		}
		if len(page.Data) == 0 {
			slog.Info("no more data from Semantic Scholar", "offset", offset)
			break
		}

		for _, p := range page.Data {
			if p.ExternalIDs.ArXiv == "" {
				continue
			}
			res.IDs.Add(arxiv.StripVersion(p.ExternalIDs.ArXiv))
			if len(res.IDs) >= n {
				break
			}
		}
	}
	return res, nil
}

func (s *SemanticScholarSource) fetchPage(ctx context.Context, offset, limit int) (*semanticPage, error) {
	params := url.Values{
		"query":  {s.Query},
		"fields": {"externalIds,citationCount"},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
		"sort":   {"citationCount"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := httputil.Do(ctx, s.Client, req, s.Policy)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var page semanticPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}
	return &page, nil
}

// Semantic Scholar API JSON structures.
type semanticPage struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string `json:"paperId"`
	CitationCount int    `json:"citationCount"`
	ExternalIDs   struct {
		ArXiv string `json:"ArXiv"`
		DOI   string `json:"DOI"`
	} `json:"externalIds"`
}
