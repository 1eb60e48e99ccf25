// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ap-aditya/srchive/internal/vectorindex"
)

// RepairReport describes a reconciliation pass.
type RepairReport struct {
	Vectors int
	Records int

	// OrphanVectors have no metadata record and are deleted.
	OrphanVectors int

	// OrphanRecords have no vector and are re-embedded from stored metadata.
	OrphanRecords int

	// Reembedded counts orphan records whose vector was restored.
	Reembedded int
	Failed     int

	DryRun bool
}

// Repair brings the two stores back to the same id set after a partial
// batch. Orphan vectors are deleted. Orphan records are re-embedded and their
// vectors written back, which keeps their type and ingested_at. With dryRun
// set nothing is written.
func (p *Pipeline) Repair(ctx context.Context, dryRun bool) (RepairReport, error) {
	rep := RepairReport{DryRun: dryRun}

	vecIDs, err := p.Index.IDs(ctx)
	if err != nil {
		return rep, fmt.Errorf("listing vector ids: %w", err)
	}
	recIDs, err := p.Store.AllIDs(ctx)
	if err != nil {
		return rep, fmt.Errorf("listing record ids: %w", err)
	}
	rep.Vectors, rep.Records = len(vecIDs), len(recIDs)

	orphanVectors := difference(vecIDs, recIDs)
	orphanRecords := difference(recIDs, vecIDs)
	rep.OrphanVectors, rep.OrphanRecords = len(orphanVectors), len(orphanRecords)

	w := p.out()
	fmt.Fprintf(w, "Vectors: %d, records: %d, orphan vectors: %d, orphan records: %d\n",
		rep.Vectors, rep.Records, rep.OrphanVectors, rep.OrphanRecords)
	if dryRun {
		return rep, nil
	}

	if len(orphanVectors) > 0 {
		if _, err := vectorindex.DeleteBatched(ctx, p.Index, orphanVectors, p.Corpus.DeleteBatchSize); err != nil {
			return rep, fmt.Errorf("deleting orphan vectors: %w", err)
		}
	}

	size := p.Corpus.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	for chunk := range slices.Chunk(orphanRecords, size) {
		records, err := p.Store.FindByIDs(ctx, chunk)
		if err != nil {
			return rep, fmt.Errorf("loading orphan records: %w", err)
		}
		var vectors []vectorindex.Vector
		for _, id := range chunk {
			rec, ok := records[id]
			if !ok {
				continue
			}
			vec, err := p.Embedder.Embed(ctx, rec.EmbeddingText())
			if err != nil {
				if ctx.Err() != nil {
					return rep, ctx.Err()
				}
				rep.Failed++
				slog.Warn("could not re-embed record", "id", id, "error", err)
				continue
			}
			vectors = append(vectors, vectorindex.Vector{ID: id, Values: vec})
		}
		if len(vectors) == 0 {
			continue
		}
		if err := p.Index.Upsert(ctx, vectors); err != nil {
			return rep, fmt.Errorf("restoring vectors: %w", err)
		}
		rep.Reembedded += len(vectors)
	}

	fmt.Fprintf(w, "Repair complete: %d vectors deleted, %d vectors restored, %d failed\n",
		rep.OrphanVectors, rep.Reembedded, rep.Failed)
	return rep, nil
}

// difference returns the elements of a not in b, sorted.
func difference(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, id := range b {
		in[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := in[id]; !ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
