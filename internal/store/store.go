// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists paper metadata in SQLite or PostgreSQL. Records
// are keyed by arXiv id, the same key the vector index uses.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/ap-aditya/srchive/pkg/types"
)

// ErrEmptyFilter is returned by DeleteMany for a filter that would match
// every record.
var ErrEmptyFilter = errors.New("refusing to delete with an empty filter")

// Filter narrows a query. Zero fields do not constrain.
type Filter struct {
	// IDs restricts to these ids. A non-nil empty slice matches nothing.
	IDs []string

	// Type keeps records of this type.
	Type types.PaperType

	// ExcludeType drops records of this type.
	ExcludeType types.PaperType
}

func (f Filter) isEmpty() bool {
	return f.IDs == nil && f.Type == "" && f.ExcludeType == ""
}

// where renders the filter as a SQL condition with ? placeholders. ids
// replaces f.IDs so callers can chunk large id lists.
func (f Filter) where(ids []string) (string, []any) {
	var conds []string
	var args []any
	if f.IDs != nil {
		conds = append(conds, "id IN ("+placeholders(len(ids))+")")
		for _, id := range ids {
			args = append(args, id)
		}
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.ExcludeType != "" {
		conds = append(conds, "type <> ?")
		args = append(args, string(f.ExcludeType))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Sort orders Find results.
type Sort int

const (
	// SortNone leaves order to the database.
	SortNone Sort = iota

	// SortOldest orders by ingested_at then id, both ascending. Eviction
	// relies on this order being total.
	SortOldest

	// SortTitle orders by title then id.
	SortTitle
)

func (s Sort) orderBy() string {
	switch s {
	case SortOldest:
		return " ORDER BY ingested_at ASC, id ASC"
	case SortTitle:
		return " ORDER BY title ASC, id ASC"
	default:
		return ""
	}
}

// Store is the metadata store contract.
type Store interface {
	// FindByIDs returns the records present for ids, keyed by id.
	FindByIDs(ctx context.Context, ids []string) (map[string]types.Paper, error)

	// Find returns records matching f in order s. A limit of zero or less
	// means no limit.
	Find(ctx context.Context, f Filter, s Sort, limit int) ([]types.Paper, error)

	// BulkUpsert inserts new records and updates existing ones. An existing
	// record keeps its type; every other field is overwritten.
	BulkUpsert(ctx context.Context, papers []types.Paper) error

	// DeleteMany removes records matching f and returns how many were removed.
	DeleteMany(ctx context.Context, f Filter) (int64, error)

	// Count returns how many records match f.
	Count(ctx context.Context, f Filter) (int, error)

	// CountByType returns record counts grouped by type.
	CountByType(ctx context.Context) (map[types.PaperType]int, error)

	// AllIDs lists every stored id.
	AllIDs(ctx context.Context) ([]string, error)

	Close() error
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
