// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discovery gathers candidate arXiv identifiers for the classic
// subset of the corpus. Each Source works independently; Merge unions their
// results.
package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
)

// IDSet is an unordered set of arXiv identifiers.
type IDSet map[string]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s IDSet) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Skip records a unit of work a source abandoned, such as an unreachable
// curated document or a page that exhausted its retries.
type Skip struct {
	Target string
	Err    error
}

// Result is the output of one Source.
type Result struct {
	Source  string
	IDs     IDSet
	Skipped []Skip
}

// Source produces up to n candidate identifiers. A returned error means the
// source gave up early; the Result still carries what was collected.
type Source interface {
	Name() string
	Discover(ctx context.Context, n int) (Result, error)
}

// Merge is the set union of every result's ids.
func Merge(results ...Result) IDSet {
	merged := make(IDSet)
	for _, r := range results {
		for id := range r.IDs {
			merged.Add(id)
		}
	}
	return merged
}

// Discoverer runs the curated source with the full target and every ranked
// source with half of it, then merges.
type Discoverer struct {
	Curated Source
	Ranked  []Source

	// W receives one progress line per source. Nil discards.
	W io.Writer
}

// Discover collects classic candidates. Source failures are logged and the
// partial results still merged; only context cancellation is returned.
func (d *Discoverer) Discover(ctx context.Context, target int) (IDSet, []Result, error) {
	w := d.W
	if w == nil {
		w = io.Discard
	}

	type job struct {
		src Source
		n   int
	}
	var jobs []job
	if d.Curated != nil {
		jobs = append(jobs, job{d.Curated, target})
	}
	for _, s := range d.Ranked {
		jobs = append(jobs, job{s, target / 2})
	}

	var results []Result
	for _, j := range jobs {
		r, err := j.src.Discover(ctx, j.n)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, results, ctxErr
		}
		if err != nil {
			slog.Warn("discovery source stopped early", "source", j.src.Name(), "error", err)
		}
		if r.Source == "" {
			r.Source = j.src.Name()
		}
		fmt.Fprintf(w, "  %s: %d ids (%d skipped)\n", r.Source, len(r.IDs), len(r.Skipped))
		results = append(results, r)
	}

	merged := Merge(results...)
	fmt.Fprintf(w, "  combined: %d unique ids\n", len(merged))
	return merged, results, nil
}
