// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/ap-aditya/srchive/internal/retention"
)

var retainCmd = &cobra.Command{
	Use:   "retain",
	Short: "Evict the oldest recent papers above the corpus cap",
	Long: `Retain counts the corpus and, when it exceeds the cap, deletes the oldest
non-classic papers from the vector index and then the metadata store until
the cap is met. Classic papers are never deleted. Running it twice is a no-op.`,
	RunE: runRetain,
}

func init() {
	rootCmd.AddCommand(retainCmd)
}

func runRetain(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	c, err := openCorpus(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	ctrl := &retention.Controller{
		Index:           c.index,
		Store:           c.store,
		DeleteBatchSize: cfg.Corpus.DeleteBatchSize,
		W:               cmd.OutOrStdout(),
	}
	rep, err := ctrl.Enforce(ctx, cfg.Corpus.MaxItems)
	if rep.Selected > 0 {
		// Vectors may be gone even when the metadata delete failed.
		dropCachedResults(ctx)
	}
	return err
}
