// Package feed defines the event sources listeners consume.
package feed

import (
	"context"

	"github.com/pc1e0/comm/internal/domain"
)

// Event is one piece of new content delivered by a Source.
type Event struct {
	Node domain.Node
	// MessageID identifies the transport message, empty for direct feeds.
	MessageID string
	Attempt   int
	TraceID   string

	settle func(ctx context.Context, err error) error
}

// NewEvent builds an event whose Done calls settle. A nil settle makes Done a no-op.
func NewEvent(node domain.Node, settle func(ctx context.Context, err error) error) Event {
	return Event{Node: node, Attempt: 1, settle: settle}
}

// Done reports the outcome of handling the event back to its source. Queue
// sources acknowledge on nil and retry or dead-letter otherwise.
func (e Event) Done(ctx context.Context, err error) error {
	if e.settle == nil {
		return nil
	}
	return e.settle(ctx, err)
}

// Source supplies events in feed order. Next blocks until an event is
// available. An error other than ctx's own is unrecoverable for the source.
type Source interface {
	Name() string
	Next(ctx context.Context) (Event, error)
}

// NodeStream is a plain stream of nodes such as reddit.Stream.
type NodeStream interface {
	Name() string
	Next(ctx context.Context) (domain.Node, error)
}

type direct struct {
	stream NodeStream
}

// Direct adapts a node stream to a Source. Events need no settlement.
func Direct(stream NodeStream) Source {
	return &direct{stream: stream}
}

func (d *direct) Name() string {
	return d.stream.Name()
}

func (d *direct) Next(ctx context.Context) (Event, error) {
	node, err := d.stream.Next(ctx)
	if err != nil {
		return Event{}, err
	}
	return NewEvent(node, nil), nil
}
