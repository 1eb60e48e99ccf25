// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ap-aditya/srchive/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only search API over HTTP",
	Long: `Serve exposes the query engine as JSON:

  GET /api/search?q=...&type=recent|classic&sort=score|title
  GET /api/stats
  GET /healthz

The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		emb, err := newEmbedder(ctx, true)
		if err != nil {
			return err
		}
		c, err := openCorpus(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		cache := openResultCache(ctx)
		if cache != nil {
			defer cache.Close()
		}

		srv := &api.Server{
			Searcher: newEngine(emb, c, cache),
			Store:    c.store,
			Index:    c.index,
		}
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
