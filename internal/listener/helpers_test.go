package listener_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/pc1e0/comm/internal/domain"
	"github.com/pc1e0/comm/internal/feed"
)

// chanSource delivers events pushed on a channel and can be told to fail.
type chanSource struct {
	name   string
	events chan feed.Event
	fail   chan error
}

func newChanSource(name string, buffer int) *chanSource {
	return &chanSource{
		name:   name,
		events: make(chan feed.Event, buffer),
		fail:   make(chan error, 1),
	}
}

func (s *chanSource) Name() string { return s.name }

func (s *chanSource) Next(ctx context.Context) (feed.Event, error) {
	select {
	case <-ctx.Done():
		return feed.Event{}, ctx.Err()
	case err := <-s.fail:
		return feed.Event{}, err
	case ev := <-s.events:
		return ev, nil
	}
}

// settlements records Done calls.
type settlements struct {
	mu   sync.Mutex
	errs map[string]error
}

func newSettlements() *settlements {
	return &settlements{errs: map[string]error{}}
}

func (s *settlements) event(id string) feed.Event {
	node := domain.NewCommentNode(domain.Comment{ID: id, Body: "body " + id})
	return feed.NewEvent(node, func(_ context.Context, err error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.errs[id] = err
		return nil
	})
}

func (s *settlements) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func (s *settlements) get(id string) (error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err, ok := s.errs[id]
	return err, ok
}

// recorder is a handler that remembers the order it saw events in.
type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) Handle(_ context.Context, ev feed.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, ev.Node.ID())
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return out
}
