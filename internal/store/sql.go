// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ap-aditya/srchive/pkg/types"
)

const (
	// DriverSQLite is the default embedded driver.
	DriverSQLite = "sqlite3"

	// DriverPostgres selects lib/pq.
	DriverPostgres = "postgres"

	// DefaultSQLitePath is used when the sqlite driver has no DSN.
	DefaultSQLitePath = "data/papers.db"

	// idChunk bounds the ids bound into one IN list.
	idChunk = 500
)

// SQL is a Store over database/sql.
type SQL struct {
	db     *sql.DB
	driver string
}

var _ Store = (*SQL)(nil)

// Open connects to the database described by cfg and creates the schema
// if it does not exist.
func Open(ctx context.Context, cfg types.StoreConfig) (*SQL, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var dsn string
	switch driver {
	case DriverSQLite:
		path := cfg.DSN
		if path == "" {
			path = DefaultSQLitePath
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("creating store directory: %w", err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store: postgres DSN is empty")
		}
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}

	s := &SQL{db: db, driver: driver}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			summary TEXT NOT NULL,
			authors TEXT NOT NULL,
			pdf_url TEXT NOT NULL,
			type TEXT NOT NULL,
			ingested_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_ingested_at ON papers(ingested_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_type ON papers(type)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// eachChunk calls fn once per id chunk of f, or once with nil when f does
// not constrain ids. A non-nil empty id list calls fn zero times.
func eachChunk(f Filter, fn func(ids []string) error) error {
	if f.IDs == nil {
		return fn(nil)
	}
	for start := 0; start < len(f.IDs); start += idChunk {
		if err := fn(f.IDs[start:min(start+idChunk, len(f.IDs))]); err != nil {
			return err
		}
	}
	return nil
}

const paperColumns = "id, title, summary, authors, pdf_url, type, ingested_at"

func scanPapers(rows *sql.Rows, out []types.Paper) ([]types.Paper, error) {
	defer rows.Close()
	for rows.Next() {
		var p types.Paper
		var typ string
		var ingested int64
		if err := rows.Scan(&p.ID, &p.Title, &p.Summary, &p.Authors, &p.PDFURL, &typ, &ingested); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		p.Type = types.PaperType(typ)
		p.IngestedAt = time.Unix(0, ingested).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindByIDs returns the stored records among ids.
func (s *SQL) FindByIDs(ctx context.Context, ids []string) (map[string]types.Paper, error) {
	papers, err := s.Find(ctx, Filter{IDs: nonNil(ids)}, SortNone, 0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.Paper, len(papers))
	for _, p := range papers {
		out[p.ID] = p
	}
	return out, nil
}

// Find returns records matching f. With an id filter larger than one chunk
// the order and limit apply per chunk, so sorted queries should not combine
// both.
func (s *SQL) Find(ctx context.Context, f Filter, sort Sort, limit int) ([]types.Paper, error) {
	var out []types.Paper
	err := eachChunk(f, func(ids []string) error {
		where, args := f.where(ids)
		q := "SELECT " + paperColumns + " FROM papers" + where + sort.orderBy()
		if limit > 0 {
			q += " LIMIT ?"
			args = append(args, limit)
		}
		rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
		if err != nil {
			return fmt.Errorf("querying papers: %w", err)
		}
		out, err = scanPapers(rows, out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BulkUpsert writes papers in one transaction.
func (s *SQL) BulkUpsert(ctx context.Context, papers []types.Paper) error {
	if len(papers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO papers (`+paperColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			authors = excluded.authors,
			pdf_url = excluded.pdf_url,
			ingested_at = excluded.ingested_at`))
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range papers {
		if p.ID == "" {
			return fmt.Errorf("upserting paper: empty id")
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Title, p.Summary, p.Authors, p.PDFURL, string(p.Type), p.IngestedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("upserting %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// DeleteMany removes matching records in one transaction.
func (s *SQL) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	if f.isEmpty() {
		return 0, ErrEmptyFilter
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var total int64
	err = eachChunk(f, func(ids []string) error {
		where, args := f.where(ids)
		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM papers"+where), args...)
		if err != nil {
			return fmt.Errorf("deleting papers: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("counting deleted rows: %w", err)
		}
		total += n
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing delete: %w", err)
	}
	return total, nil
}

// Count returns how many records match f.
func (s *SQL) Count(ctx context.Context, f Filter) (int, error) {
	total := 0
	err := eachChunk(f, func(ids []string) error {
		where, args := f.where(ids)
		var n int
		if err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM papers"+where), args...).Scan(&n); err != nil {
			return fmt.Errorf("counting papers: %w", err)
		}
		total += n
		return nil
	})
	return total, err
}

// CountByType returns record counts grouped by type.
func (s *SQL) CountByType(ctx context.Context) (map[types.PaperType]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT type, COUNT(*) FROM papers GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("counting by type: %w", err)
	}
	defer rows.Close()

	out := make(map[types.PaperType]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		out[types.PaperType(typ)] = n
	}
	return out, rows.Err()
}

// AllIDs lists every stored id.
func (s *SQL) AllIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM papers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
