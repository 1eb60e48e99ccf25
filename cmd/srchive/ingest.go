// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ap-aditya/srchive/internal/discovery"
	"github.com/ap-aditya/srchive/internal/ingest"
	"github.com/ap-aditya/srchive/internal/retention"
	"github.com/ap-aditya/srchive/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Refresh the corpus with classic and recent papers",
	Long: `Ingest runs one full refresh: enforce the corpus cap, discover classic
candidates from curated lists and citation rankings, ingest them, walk weekly
arXiv windows backwards for recent papers, and enforce the cap again.

Papers already in the corpus are skipped. Per-paper failures are reported in
the summary; a run is cut short only by an unreachable embedding service,
a store that cannot be opened, or an interrupt.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("max-items", 0, "corpus cap (default 30000)")
	ingestCmd.Flags().Int("classic-target", 0, "classic papers to add per run (default 3000)")
	ingestCmd.Flags().Int("recent-target", 0, "recent papers to add per run (default 27000)")
	ingestCmd.Flags().Int("max-windows", 0, "weekly windows to walk back (default 156)")
	ingestCmd.Flags().Bool("skip-classic", false, "skip discovery and classic ingestion")
	ingestCmd.Flags().Bool("skip-recent", false, "skip recent ingestion")

	_ = viper.BindPFlag("corpus.max_items", ingestCmd.Flags().Lookup("max-items"))
	_ = viper.BindPFlag("corpus.classic_target", ingestCmd.Flags().Lookup("classic-target"))
	_ = viper.BindPFlag("corpus.recent_target", ingestCmd.Flags().Lookup("recent-target"))
	_ = viper.BindPFlag("arxiv.max_windows", ingestCmd.Flags().Lookup("max-windows"))

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	skipClassic, _ := cmd.Flags().GetBool("skip-classic")
	skipRecent, _ := cmd.Flags().GetBool("skip-recent")

	ctx, stop := signalContext()
	defer stop()

	runID := uuid.NewString()
	log := slog.With("run_id", runID)
	log.Info("ingestion run starting", "max_items", cfg.Corpus.MaxItems)
	out := cmd.OutOrStdout()
	start := time.Now()

	emb, err := newEmbedder(ctx, false)
	if err != nil {
		return err
	}
	c, err := openCorpus(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	ctrl := &retention.Controller{
		Index:           c.index,
		Store:           c.store,
		DeleteBatchSize: cfg.Corpus.DeleteBatchSize,
		W:               out,
	}
	if _, err := ctrl.Enforce(ctx, cfg.Corpus.MaxItems); err != nil {
		return fmt.Errorf("pre-run retention: %w", err)
	}

	processed, err := ingest.LoadProcessed(ctx, c.store)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Corpus holds %d papers.\n", len(processed))

	pipe := &ingest.Pipeline{
		Papers:   newArxivClient(),
		Embedder: emb,
		Index:    c.index,
		Store:    c.store,
		Corpus:   cfg.Corpus,
		Arxiv:    cfg.Arxiv,
		W:        out,
	}

	var summaries []ingest.ModeSummary
	var runErr error

	if !skipClassic {
		candidates, err := discoverClassics(ctx, out)
		if err != nil {
			return err
		}
		var sum ingest.ModeSummary
		processed, sum, err = pipe.IngestClassic(ctx, candidates, processed)
		summaries = append(summaries, sum)
		runErr = errors.Join(runErr, err)
	}

	if !skipRecent && ctx.Err() == nil {
		var sum ingest.ModeSummary
		_, sum, err = pipe.IngestRecent(ctx, processed)
		summaries = append(summaries, sum)
		runErr = errors.Join(runErr, err)
	}

	if ctx.Err() == nil {
		if _, err := ctrl.Enforce(ctx, cfg.Corpus.MaxItems); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("post-run retention: %w", err))
		}
	}

	dropCachedResults(context.WithoutCancel(ctx))

	if err := printRunReport(context.WithoutCancel(ctx), out, c, summaries, time.Since(start)); err != nil {
		runErr = errors.Join(runErr, err)
	}
	log.Info("ingestion run finished", "elapsed", time.Since(start).Round(time.Second))

	if runErr != nil {
		return runErr
	}
	for _, s := range summaries {
		if s.HasFailures() {
			fmt.Fprintf(os.Stderr, "%s ingestion had %d failed paper(s) and %d failed window(s)\n",
				s.Mode, s.Failed, s.FailedWindows)
		}
	}
	return nil
}

func discoverClassics(ctx context.Context, out io.Writer) (discovery.IDSet, error) {
	fmt.Fprintln(out, "Discovering classic papers...")
	hc := &http.Client{Timeout: cfg.Discovery.Timeout}
	ids, _, err := newDiscoverer(hc, cfg.Discovery).Discover(ctx, cfg.Corpus.ClassicTarget)
	if err != nil {
		return nil, fmt.Errorf("discovering classic papers: %w", err)
	}
	fmt.Fprintf(out, "Found %d unique classic candidates.\n", len(ids))
	return ids, nil
}

func printRunReport(ctx context.Context, out io.Writer, c *corpus, summaries []ingest.ModeSummary, elapsed time.Duration) error {
	byType, err := c.store.CountByType(ctx)
	if err != nil {
		return fmt.Errorf("counting corpus: %w", err)
	}
	total := 0
	for _, n := range byType {
		total += n
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Ingestion finished in %s\n", elapsed.Round(time.Second))
	for _, s := range summaries {
		line := fmt.Sprintf("  %-8s %d staged, %d skipped, %d failed", s.Mode, s.Staged, s.Skipped, s.Failed)
		if s.Mode == string(types.PaperRecent) {
			line += fmt.Sprintf(", %d windows", s.Windows)
			if s.Shortfall > 0 {
				line += fmt.Sprintf(", %d short", s.Shortfall)
			}
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "Corpus: %d papers (%d classic, %d recent), cap %d\n",
		total, byType[types.PaperClassic], byType[types.PaperRecent], cfg.Corpus.MaxItems)
	return nil
}
