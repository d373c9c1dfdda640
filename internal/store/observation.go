package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pc1e0/comm/common/id"
	"github.com/pc1e0/comm/internal/domain"
)

// ObservationStore records what the bot saw and decided for each item.
type ObservationStore interface {
	Create(ctx context.Context, obs *domain.Observation) error
	Get(ctx context.Context, id int64) (*domain.Observation, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Observation, error)
}

type observationStore struct {
	db DBTX
}

func newObservationStore(db DBTX) *observationStore {
	return &observationStore{db: db}
}

const observationColumns = `id, content_id, kind, author, content, category, seeks_help, flagged, created_at`

// Create assigns an id and timestamp when they are unset.
func (s *observationStore) Create(ctx context.Context, obs *domain.Observation) error {
	if obs.ID == 0 {
		obs.ID = id.New()
	}
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = id.Time(obs.ID)
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO observations (`+observationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		obs.ID, obs.ContentID, string(obs.Kind), obs.Author, obs.Content,
		obs.Category, obs.SeeksHelp, obs.Flagged, obs.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting observation %s: %w", obs.ContentID, err)
	}
	return nil
}

func (s *observationStore) Get(ctx context.Context, obsID int64) (*domain.Observation, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+observationColumns+` FROM observations WHERE id = $1`, obsID)

	obs, err := scanObservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &obs, nil
}

func (s *observationStore) ListRecent(ctx context.Context, limit int) ([]domain.Observation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+observationColumns+` FROM observations ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing observations: %w", err)
	}
	defer rows.Close()

	var result []domain.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, obs)
	}
	return result, rows.Err()
}

func scanObservation(row pgx.Row) (domain.Observation, error) {
	var (
		obs  domain.Observation
		kind string
	)
	err := row.Scan(&obs.ID, &obs.ContentID, &kind, &obs.Author, &obs.Content,
		&obs.Category, &obs.SeeksHelp, &obs.Flagged, &obs.CreatedAt)
	obs.Kind = domain.NodeKind(kind)
	return obs, err
}

// NoopObservationStore drops everything. Used when no database is configured.
type NoopObservationStore struct{}

func (NoopObservationStore) Create(context.Context, *domain.Observation) error { return nil }

func (NoopObservationStore) Get(context.Context, int64) (*domain.Observation, error) {
	return nil, ErrNotFound
}

func (NoopObservationStore) ListRecent(context.Context, int) ([]domain.Observation, error) {
	return nil, nil
}
