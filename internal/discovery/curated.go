// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/ap-aditya/srchive/internal/arxiv"
)

// curatedIDPattern matches arXiv abstract and PDF links in curated lists.
var curatedIDPattern = regexp.MustCompile(`https://arxiv.org/(?:abs|pdf)/(\d{4}\.\d{4,5}(?:v\d+)?)`)

// maxDocumentBytes bounds how much of a curated document is read.
const maxDocumentBytes = 16 << 20

// ExtractIDs returns the arXiv ids linked from text in order of first
// appearance, versions stripped and duplicates removed.
func ExtractIDs(text string) []string {
	seen := make(IDSet)
	var ids []string
	for _, m := range curatedIDPattern.FindAllStringSubmatch(text, -1) {
		id := arxiv.StripVersion(m[1])
		if seen.Add(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// CuratedSource mines plain-text reading lists for arXiv links.
type CuratedSource struct {
	Client    *http.Client
	URLs      []string
	Timeout   time.Duration
	UserAgent string
}

// Name returns the source identifier.
func (s *CuratedSource) Name() string { return "curated" }

// Discover fetches every URL and collects the linked ids. Unreachable
// documents are skipped. When n > 0 the result holds at most n ids, taken
// in sorted order.
func (s *CuratedSource) Discover(ctx context.Context, n int) (Result, error) {
	res := Result{Source: s.Name(), IDs: make(IDSet)}
	for _, u := range s.URLs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		text, err := s.fetch(ctx, u)
		if err != nil {
			slog.Warn("could not fetch curated list", "url", u, "error", err)
			res.Skipped = append(res.Skipped, Skip{Target: u, Err: err})
			continue
		}
		for _, id := range ExtractIDs(text) {
			res.IDs.Add(id)
		}
	}

	if n > 0 && len(res.IDs) > n {
		res.IDs = NewIDSet(res.IDs.Sorted()[:n]...)
	}
	return res, nil
}

func (s *CuratedSource) fetch(ctx context.Context, u string) (string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(body), nil
}
