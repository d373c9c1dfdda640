package listener

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pc1e0/comm/common/logger"
	"github.com/pc1e0/comm/internal/feed"
)

type State int32

const (
	StateIdle State = iota
	StateListening
	StateDispatching
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateDispatching:
		return "dispatching"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Handler processes one event. Returning an error marks the event failed;
// the listener keeps going either way.
type Handler interface {
	Handle(ctx context.Context, event feed.Event) error
}

type HandlerFunc func(ctx context.Context, event feed.Event) error

func (f HandlerFunc) Handle(ctx context.Context, event feed.Event) error {
	return f(ctx, event)
}

// Status is a point-in-time view of a listener, safe to read while it runs.
type Status struct {
	Name        string     `json:"name"`
	State       string     `json:"state"`
	Processed   int64      `json:"processed"`
	Failed      int64      `json:"failed"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Listener pulls events from one source and hands them to its handler one
// at a time, in source order.
type Listener struct {
	name    string
	source  feed.Source
	handler Handler

	state       atomic.Int32
	processed   atomic.Int64
	failed      atomic.Int64
	lastEventAt atomic.Int64 // unix nanos, 0 = never
	lastError   atomic.Pointer[string]
}

func New(name string, source feed.Source, handler Handler) *Listener {
	return &Listener{
		name:    name,
		source:  source,
		handler: handler,
	}
}

func (l *Listener) Name() string {
	return l.name
}

func (l *Listener) State() State {
	return State(l.state.Load())
}

func (l *Listener) Status() Status {
	s := Status{
		Name:      l.name,
		State:     l.State().String(),
		Processed: l.processed.Load(),
		Failed:    l.failed.Load(),
	}
	if ns := l.lastEventAt.Load(); ns != 0 {
		t := time.Unix(0, ns).UTC()
		s.LastEventAt = &t
	}
	if e := l.lastError.Load(); e != nil {
		s.LastError = *e
	}
	return s
}

// Run listens until ctx is cancelled (nil error, state Stopped) or the source
// fails (the error, state Failed). Handler failures never end Run.
func (l *Listener) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Stream:    logger.Ptr(l.name),
		Component: "comm.listener",
	})

	l.setState(StateListening)
	slog.InfoContext(ctx, "listener started", "source", l.source.Name())

	for {
		event, err := l.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.setState(StateStopped)
				slog.InfoContext(ctx, "listener stopped",
					"processed", l.processed.Load(),
					"failed", l.failed.Load())
				return nil
			}
			l.setState(StateFailed)
			l.recordError(err)
			slog.ErrorContext(ctx, "listener source failed", "error", err)
			return fmt.Errorf("listener %s: %w", l.name, err)
		}

		l.setState(StateDispatching)
		l.dispatch(ctx, event)
		l.setState(StateListening)
	}
}

func (l *Listener) dispatch(ctx context.Context, event feed.Event) {
	l.lastEventAt.Store(time.Now().UnixNano())

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ContentID: logger.Ptr(event.Node.Fullname()),
		Kind:      logger.Ptr(string(event.Node.Kind)),
	})

	sc := logger.StartSpanFromTraceID(ctx, event.TraceID, "listener.dispatch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("stream", l.name),
			attribute.String("reddit.fullname", event.Node.Fullname()),
			attribute.Int("attempt", event.Attempt),
		))
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	err := l.handleSafe(ctx, event)
	if err != nil {
		l.failed.Add(1)
		l.recordError(err)
		sc.RecordError(err)
		slog.ErrorContext(ctx, "event handling failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
	} else {
		l.processed.Add(1)
		slog.DebugContext(ctx, "event handled",
			"duration_ms", time.Since(start).Milliseconds())
	}

	if doneErr := event.Done(ctx, err); doneErr != nil {
		slog.ErrorContext(ctx, "failed to settle event", "error", doneErr)
	}
}

func (l *Listener) handleSafe(ctx context.Context, event feed.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in event handler", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.handler.Handle(ctx, event)
}

func (l *Listener) setState(s State) {
	l.state.Store(int32(s))
}

func (l *Listener) recordError(err error) {
	msg := err.Error()
	l.lastError.Store(&msg)
}
