package handler_test

import (
	"context"

	"github.com/pc1e0/comm/internal/domain"
	"github.com/pc1e0/comm/internal/listener"
)

type staticStatuses []listener.Status

func (s staticStatuses) Statuses() []listener.Status { return s }

type mockObservationStore struct {
	listFn    func(ctx context.Context, limit int) ([]domain.Observation, error)
	lastLimit int
}

func (m *mockObservationStore) Create(context.Context, *domain.Observation) error { return nil }

func (m *mockObservationStore) Get(context.Context, int64) (*domain.Observation, error) {
	return nil, nil
}

func (m *mockObservationStore) ListRecent(ctx context.Context, limit int) ([]domain.Observation, error) {
	m.lastLimit = limit
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, nil
}
