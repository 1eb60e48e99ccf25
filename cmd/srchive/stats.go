// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ap-aditya/srchive/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print corpus counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		c, err := openCorpus(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		byType, err := c.store.CountByType(ctx)
		if err != nil {
			return err
		}
		vectors, err := c.index.Count(ctx)
		if err != nil {
			return err
		}
		total := byType[types.PaperClassic] + byType[types.PaperRecent]

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Records: %d (%d classic, %d recent)\n",
			total, byType[types.PaperClassic], byType[types.PaperRecent])
		fmt.Fprintf(out, "Vectors: %d\n", vectors)
		fmt.Fprintf(out, "Cap:     %d\n", cfg.Corpus.MaxItems)
		if vectors != total {
			fmt.Fprintln(out, "Stores diverge; run `srchive repair`.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
