// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/ap-aditya/srchive/internal/arxiv"
	"github.com/ap-aditya/srchive/internal/httputil"
	"github.com/ap-aditya/srchive/pkg/types"
)

// openAlexWorksBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works"

// openAlexArxivSource is the OpenAlex source id for arXiv.
const openAlexArxivSource = "S4306400194"

// OpenAlex records arXiv locations with http and https links alike.
var locationIDPattern = regexp.MustCompile(`arxiv\.org/(?:abs|pdf)/(\d{4}\.\d{4,5}(?:v\d+)?)`)

// OpenAlexSource ranks arXiv-hosted works by citation count.
type OpenAlexSource struct {
	Client    *http.Client
	Email     string
	UserAgent string
	PageSize  int
	MaxOffset int
	Policy    httputil.Policy

	limiter *rate.Limiter
}

// NewOpenAlexSource builds a source from discovery settings.
func NewOpenAlexSource(hc *http.Client, cfg types.DiscoveryConfig) *OpenAlexSource {
	limit := rate.Inf
	if cfg.PageDelay > 0 {
		limit = rate.Every(cfg.PageDelay)
	}
	return &OpenAlexSource{
		Client:    hc,
		Email:     cfg.OpenAlexEmail,
		UserAgent: cfg.UserAgent,
		PageSize:  min(cfg.PageSize, 200),
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
func (s *OpenAlexSource) Name() string { return "openalex" }

// Discover walks pages of the most cited arXiv works until n ids are
// collected, a page comes back empty, or the offset limit is reached.
func (s *OpenAlexSource) Discover(ctx context.Context, n int) (Result, error) {
	res := Result{Source: s.Name(), IDs: make(IDSet)}
	if n <= 0 {
		return res, nil
	}
	perPage := s.PageSize
	if perPage <= 0 {
		perPage = 100
	}
	maxOffset := s.MaxOffset
	if maxOffset <= 0 {
		maxOffset = 9900
	}
	limiter := s.limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	for page := 1; len(res.IDs) < n && (page-1)*perPage <= maxOffset; page++ {
		if err := limiter.Wait(ctx); err != nil {
			return res, err
		}
		works, err := s.fetchPage(ctx, page, perPage)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{Target: "page=" + strconv.Itoa(page), Err: err})
			return res, err
		}
		if len(works) == 0 {
			break
		}
		for _, w := range works {
			if id := w.arxivID(); id != "" {
				res.IDs.Add(id)
			}
			if len(res.IDs) >= n {
				break
			}
		}
	}
	return res, nil
}

func (s *OpenAlexSource) fetchPage(ctx context.Context, page, perPage int) ([]openAlexWork, error) {
	params := url.Values{
		"filter":   {"locations.source.id:" + openAlexArxivSource},
		"sort":     {"cited_by_count:desc"},
		"select":   {"id,cited_by_count,locations"},
		"per_page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(page)},
	}
	if s.Email != "" {
		params.Set("mailto", s.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexWorksBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	resp, err := httputil.Do(ctx, s.Client, req, s.Policy)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var r openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	return r.Results, nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID           string             `json:"id"`
	CitedByCount int                `json:"cited_by_count"`
	Locations    []openAlexLocation `json:"locations"`
}

type openAlexLocation struct {
	LandingPageURL string `json:"landing_page_url"`
	PDFURL         string `json:"pdf_url"`
}

// arxivID returns the first arXiv id found among the work's locations.
func (w openAlexWork) arxivID() string {
	for _, l := range w.Locations {
		for _, u := range []string{l.LandingPageURL, l.PDFURL} {
			if m := locationIDPattern.FindStringSubmatch(u); m != nil {
				return arxiv.StripVersion(m[1])
			}
		}
	}
	return ""
}
