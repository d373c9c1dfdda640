package listener

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Orchestrator runs listeners side by side. Each runs in its own goroutine and
// neither waits on, nor stops, the other.
type Orchestrator struct {
	listeners []*Listener
}

func NewOrchestrator(listeners ...*Listener) *Orchestrator {
	return &Orchestrator{listeners: listeners}
}

// Run blocks until every listener has returned and joins their errors.
// A failed listener does not cancel the others; they stop with ctx.
func (o *Orchestrator) Run(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, l := range o.listeners {
		wg.Add(1)
		go func(l *Listener) {
			defer wg.Done()
			if err := l.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(l)
	}

	slog.InfoContext(ctx, "orchestrator running", "listeners", len(o.listeners))
	wg.Wait()

	return errors.Join(errs...)
}

// Statuses reports every listener, in registration order.
func (o *Orchestrator) Statuses() []Status {
	out := make([]Status, len(o.listeners))
	for i, l := range o.listeners {
		out[i] = l.Status()
	}
	return out
}
