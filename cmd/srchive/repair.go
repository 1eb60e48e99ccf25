// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ap-aditya/srchive/internal/ingest"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Reconcile the vector index with the metadata store",
	Long: `Repair compares the ids held by the vector index and the metadata store.
Vectors without a metadata record are deleted. Records without a vector are
re-embedded from their stored title and abstract, keeping their type and
ingestion time. Use --dry-run to only report the divergence.`,
	RunE: runRepair,
}

func init() {
	repairCmd.Flags().Bool("dry-run", false, "report divergence without writing")
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, stop := signalContext()
	defer stop()

	c, err := openCorpus(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	pipe := &ingest.Pipeline{
		Index:  c.index,
		Store:  c.store,
		Corpus: cfg.Corpus,
		W:      cmd.OutOrStdout(),
	}
	if !dryRun {
		if pipe.Embedder, err = newEmbedder(ctx, false); err != nil {
			return err
		}
	}

	rep, err := pipe.Repair(ctx, dryRun)
	if !dryRun && rep.OrphanVectors+rep.OrphanRecords > 0 {
		dropCachedResults(ctx)
	}
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Dry run: nothing written.")
		return nil
	}
	if rep.Failed > 0 {
		return fmt.Errorf("%d record(s) could not be re-embedded", rep.Failed)
	}
	return nil
}
