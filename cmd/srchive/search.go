// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/ap-aditya/srchive/internal/query"
	"github.com/ap-aditya/srchive/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over the corpus",
	Long: `Search embeds each ';'-separated sub-query, looks up its nearest papers,
and merges the results by score. When two sub-queries return the same paper
the first one wins. Results can be narrowed to recent or classic papers and
re-sorted by title.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("type", "", "only show recent or classic papers")
	searchCmd.Flags().String("sort", "score", "order results by score or title")
	searchCmd.Flags().StringP("format", "o", "table", "output format: table, json, or yaml")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	typeFlag, _ := cmd.Flags().GetString("type")
	sortBy, _ := cmd.Flags().GetString("sort")
	format, _ := cmd.Flags().GetString("format")

	typ, err := types.ParsePaperType(typeFlag)
	if err != nil {
		return err
	}
	if sortBy != "score" && sortBy != "title" {
		return fmt.Errorf("unknown sort %q: use score or title", sortBy)
	}

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

	out, err := newEngine(emb, c, cache).Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	out.Hits = query.FilterByType(out.Hits, typ)
	if sortBy == "title" {
		query.SortByTitle(out.Hits)
	}
	return renderOutput(cmd.OutOrStdout(), out, format)
}

// renderOutput writes out as a table, JSON, or YAML.
func renderOutput(w io.Writer, out query.Output, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q: use table, json, or yaml", format)
	}

	for _, qe := range out.Errors {
		fmt.Fprintf(w, "warning: %q failed: %s\n", qe.Query, qe.Error)
	}
	if len(out.Hits) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tID\tTYPE\tTITLE\tAUTHORS")
	for _, h := range out.Hits {
		fmt.Fprintf(tw, "%.3f\t%s\t%s\t%s\t%s\n",
			h.Score, h.ID, h.Type, truncate(h.Title, 70), truncate(h.Authors, 40))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
