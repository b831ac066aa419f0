// Package postgres archives converted documents in a Postgres table using
// pgx v5. Each document becomes one row with the JSON in a json column.
//
// The column type is json: jsonb cannot hold the \u0000 escape that a NUL
// byte in a CSV field converts to.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"csvtojson/internal/storage"
)

// Config holds archive configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // fully qualified table name, e.g. "public.csvtojson_documents"

	// AutoCreateTable runs CREATE TABLE IF NOT EXISTS on startup.
	AutoCreateTable bool
}

// execer is the subset of *pgxpool.Pool the sink uses.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Sink is a storage.Sink backed by Postgres.
type Sink struct {
	db     execer
	insert string
	newID  func() uuid.UUID
	close  func()
}

var _ storage.Sink = (*Sink)(nil)

// New connects to Postgres, verifies the connection, and creates the table
// when cfg.AutoCreateTable is set.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, errors.New("postgres sink: table must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := newSink(pool, cfg.Table)
	s.close = pool.Close

	if cfg.AutoCreateTable {
		if err := s.EnsureTable(ctx, cfg.Table); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

func newSink(db execer, table string) *Sink {
	return &Sink{
		db:     db,
		insert: InsertSQL(table),
		newID:  uuid.New,
		close:  func() {},
	}
}

// EnsureTable creates table when it does not exist.
func (s *Sink) EnsureTable(ctx context.Context, table string) error {
	if _, err := s.db.Exec(ctx, CreateTableSQL(table)); err != nil {
		return fmt.Errorf("create table %s: %w", table, pgDetail(err))
	}
	return nil
}

// Write inserts one document under a fresh uuid.
func (s *Sink) Write(ctx context.Context, d storage.Document) error {
	_, err := s.db.Exec(ctx, s.insert,
		s.newID().String(),
		d.Name,
		d.Source,
		d.HashHex(),
		d.Rows,
		string(d.JSON),
	)
	if err != nil {
		return fmt.Errorf("archive %s: %w", d.Name, pgDetail(err))
	}
	return nil
}

// Close releases the connection pool.
func (s *Sink) Close() error {
	s.close()
	return nil
}

// CreateTableSQL returns the archive table DDL.
func CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  "id" uuid PRIMARY KEY,
  "name" text NOT NULL,
  "source" text NOT NULL,
  "input_hash" text NOT NULL,
  "row_count" integer NOT NULL,
  "doc" json NOT NULL,
  "created_at" timestamptz NOT NULL DEFAULT now()
);`, pgFQN(table))
}

// InsertSQL returns the parameterized insert for one document.
func InsertSQL(table string) string {
	return fmt.Sprintf(
		`INSERT INTO %s ("id", "name", "source", "input_hash", "row_count", "doc") VALUES ($1, $2, $3, $4, $5, $6)`,
		pgFQN(table),
	)
}

// pgDetail surfaces the server's detail text when there is one.
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s: %s)", err, pgErr.SQLState(), pgErr.Detail)
	}
	return err
}

// pgIdent quotes one identifier: pgIdent(`weird"name`) => `"weird""name"`.
func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// pgFQN quotes a possibly schema-qualified name like "public.docs" to
// `"public"."docs"`. Empty segments are ignored.
func pgFQN(f string) string {
	parts := strings.Split(f, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, pgIdent(p))
	}
	return strings.Join(out, ".")
}
