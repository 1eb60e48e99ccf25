// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest fetches paper metadata, embeds it, and writes each paper to
// the vector index and the metadata store in batches. Classic mode works
// through discovered candidates; recent mode walks weekly submission
// windows backwards from now.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/ap-aditya/srchive/internal/arxiv"
	"github.com/ap-aditya/srchive/internal/discovery"
	"github.com/ap-aditya/srchive/internal/embed"
	"github.com/ap-aditya/srchive/internal/store"
	"github.com/ap-aditya/srchive/internal/vectorindex"
	"github.com/ap-aditya/srchive/pkg/types"
)

// PaperSource is the subset of the arXiv client the pipeline needs.
type PaperSource interface {
	FetchByID(ctx context.Context, id string) (types.Paper, error)
	Search(ctx context.Context, q arxiv.SearchQuery) iter.Seq2[types.Paper, error]
}

// ModeSummary reports the outcome of one ingestion mode.
type ModeSummary struct {
	Mode       string
	Candidates int
	Staged     int
	Skipped    int
	Failed     int

	// Windows is how many recent windows were scanned; FailedWindows how
	// many of them ended on a search error.
	Windows       int
	FailedWindows int

	// Shortfall is how far recent mode fell short of its target.
	Shortfall int

	Elapsed time.Duration
}

// HasFailures reports whether any paper or window failed.
func (s ModeSummary) HasFailures() bool {
	return s.Failed > 0 || s.FailedWindows > 0
}

// Pipeline runs ingestion modes. It is not safe for concurrent use.
type Pipeline struct {
	Papers   PaperSource
	Embedder embed.Provider
	Index    vectorindex.Index
	Store    store.Store

	Corpus types.CorpusConfig
	Arxiv  types.ArxivConfig

	// W receives progress lines. Nil discards.
	W io.Writer

	// ProgressEvery prints a progress line every N staged papers (default 100).
	ProgressEvery int

	// Now stamps IngestedAt and anchors recent windows. Nil means time.Now.
	Now func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *Pipeline) out() io.Writer {
	if p.W == nil {
		return io.Discard
	}
	return p.W
}

func (p *Pipeline) progress(mode string, staged, target int) {
	every := p.ProgressEvery
	if every <= 0 {
		every = 100
	}
	if staged%every == 0 {
		fmt.Fprintf(p.out(), "  %s: %d/%d staged\n", mode, staged, target)
	}
}

// IngestClassic stages every candidate not yet processed, in sorted order,
// until the classic target is reached. Lookup and embedding failures skip
// the id without marking it processed. The returned error is a flush or
// context failure; the summary is valid either way.
func (p *Pipeline) IngestClassic(ctx context.Context, candidates discovery.IDSet, processed ProcessedSet) (ProcessedSet, ModeSummary, error) {
	start := time.Now()
	sum := ModeSummary{Mode: string(types.PaperClassic)}
	target := p.Corpus.ClassicTarget

	var todo []string
	for _, id := range candidates.Sorted() {
		if !processed.Has(id) {
			todo = append(todo, id)
		}
	}
	sum.Candidates = len(todo)
	w := p.out()
	if len(todo) == 0 {
		fmt.Fprintln(w, "No new classic papers to ingest.")
		return processed, sum, nil
	}
	fmt.Fprintf(w, "Ingesting up to %d of %d new classic papers...\n", target, len(todo))

	batch := NewStagedBatch(p.Index, p.Store, p.Corpus.BatchSize)
	err := func() error {
		for _, id := range todo {
			if target > 0 && sum.Staged >= target {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			paper, err := p.Papers.FetchByID(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if errors.Is(err, arxiv.ErrNotFound) {
					sum.Skipped++
				} else {
					sum.Failed++
				}
				slog.Warn("skipping classic paper", "id", id, "error", err)
				continue
			}

			ok, err := p.stage(ctx, batch, paper, types.PaperClassic, processed)
			if err != nil {
				return err
			}
			if !ok {
				sum.Failed++
				continue
			}
			sum.Staged++
			p.progress(sum.Mode, sum.Staged, target)
		}
		return nil
	}()

	err = errors.Join(err, p.flush(ctx, batch, processed))
	sum.Elapsed = time.Since(start)
	fmt.Fprintf(w, "Classic ingestion complete: %d staged, %d skipped, %d failed (%s)\n",
		sum.Staged, sum.Skipped, sum.Failed, sum.Elapsed.Round(time.Second))
	return processed, sum, err
}

// IngestRecent walks weekly windows newest-first and stages unprocessed
// papers until the recent target is met or the window limit is reached. A
// window whose search fails is logged and skipped.
func (p *Pipeline) IngestRecent(ctx context.Context, processed ProcessedSet) (ProcessedSet, ModeSummary, error) {
	start := time.Now()
	sum := ModeSummary{Mode: string(types.PaperRecent)}
	target := p.Corpus.RecentTarget
	w := p.out()

	days := p.Arxiv.WindowDays
	if days <= 0 {
		days = 7
	}
	window := time.Duration(days) * 24 * time.Hour
	maxWindows := p.Arxiv.MaxWindows
	if maxWindows <= 0 {
		maxWindows = 156
	}
	anchor := p.now()

	fmt.Fprintf(w, "Ingesting up to %d recent papers...\n", target)
	batch := NewStagedBatch(p.Index, p.Store, p.Corpus.BatchSize)

	err := func() error {
		for k := 0; k < maxWindows && sum.Staged < target; k++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := anchor.Add(-time.Duration(k) * window)
			q := arxiv.SearchQuery{
				Categories: p.Corpus.Categories,
				From:       end.Add(-window),
				To:         end,
				MaxResults: p.Arxiv.MaxResultsPerWindow,
			}
			span := q.From.Format("20060102") + "-" + q.To.Format("20060102")
			slog.Debug("scanning window", "window", span)

			found := 0
			for paper, err := range p.Papers.Search(ctx, q) {
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					sum.FailedWindows++
					slog.Warn("could not process window", "window", span, "error", err)
					break
				}
				if processed.Has(paper.ID) {
					continue
				}

				ok, err := p.stage(ctx, batch, paper, types.PaperRecent, processed)
				if err != nil {
					return err
				}
				if !ok {
					sum.Failed++
					continue
				}
				found++
				sum.Staged++
				p.progress(sum.Mode, sum.Staged, target)
				if sum.Staged >= target {
					break
				}
			}
			sum.Windows++

			if found == 0 {
				fmt.Fprintf(w, "  %s: no new papers, searching further back\n", span)
			}
		}
		return nil
	}()

	err = errors.Join(err, p.flush(ctx, batch, processed))
	if sum.Staged < target {
		sum.Shortfall = target - sum.Staged
	}
	sum.Elapsed = time.Since(start)
	fmt.Fprintf(w, "Recent ingestion complete: %d staged over %d windows, %d failed",
		sum.Staged, sum.Windows, sum.Failed)
	if sum.Shortfall > 0 {
		fmt.Fprintf(w, ", %d short of target", sum.Shortfall)
	}
	fmt.Fprintf(w, " (%s)\n", sum.Elapsed.Round(time.Second))
	return processed, sum, err
}

// stage embeds paper and adds it to the batch. It returns false without an
// error when embedding fails; an error means the batch could not flush.
// Staged ids join processed at once so a paper seen twice in one run is
// staged once; ids of a batch that fails to flush are removed again.
func (p *Pipeline) stage(ctx context.Context, batch *StagedBatch, paper types.Paper, typ types.PaperType, processed ProcessedSet) (bool, error) {
	vec, err := p.Embedder.Embed(ctx, paper.EmbeddingText())
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		slog.Warn("could not embed paper", "id", paper.ID, "error", err)
		return false, nil
	}

	paper.Summary = types.CleanSummary(paper.Summary)
	paper.Type = typ
	paper.IngestedAt = p.now()
	processed.Add(paper.ID)
	if err := batch.Add(ctx, paper, vec); err != nil {
		processed.Remove(unflushedIDs(err)...)
		return false, err
	}
	return true, nil
}

// flush writes the batch remainder and forgets its ids if the write fails.
func (p *Pipeline) flush(ctx context.Context, batch *StagedBatch, processed ProcessedSet) error {
	err := batch.Flush(ctx)
	processed.Remove(unflushedIDs(err)...)
	return err
}
