package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("not found")

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stores groups the SQL-backed stores over one connection.
type Stores struct {
	db DBTX
}

func New(db DBTX) *Stores {
	return &Stores{db: db}
}

func (s *Stores) Observations() ObservationStore {
	return newObservationStore(s.db)
}

// EnsureSchema creates every table the stores need.
func (s *Stores) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS observations (
		id          BIGINT PRIMARY KEY,
		content_id  TEXT NOT NULL,
		kind        TEXT NOT NULL,
		author      TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL,
		category    TEXT NOT NULL DEFAULT '',
		seeks_help  BOOLEAN NOT NULL DEFAULT FALSE,
		flagged     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS observations_content_id_idx ON observations (content_id)`,
	`CREATE INDEX IF NOT EXISTS observations_created_at_idx ON observations (created_at DESC)`,
}
