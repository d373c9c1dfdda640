package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pc1e0/comm/internal/domain"
)

// seenCapacity bounds the seen set; it only has to outlive one listing page.
const seenCapacity = 301

// Lister fetches one page of a listing, newest first.
type Lister func(ctx context.Context) ([]domain.Node, error)

type StreamConfig struct {
	Name string
	// MinWait and MaxWait bound the pause between polls that found nothing new.
	MinWait time.Duration
	MaxWait time.Duration
	// MaxConsecutiveErrors ends the stream after that many failed polls in a
	// row. Temporary failures (429, 5xx, network) do not count and permanent
	// ones (other 4xx) end the stream at once.
	MaxConsecutiveErrors int
}

// Stream turns a polled listing into an ordered feed of new items.
//
// The first poll only records what already exists; later polls yield unseen
// items oldest first. Empty polls and errors back off exponentially.
// A Stream is not safe for concurrent use; give each listener its own.
type Stream struct {
	name      string
	list      Lister
	seen      *lru.Cache[string, struct{}]
	pending   []domain.Node
	seeded    bool
	wait      *backoff.ExponentialBackOff
	maxErrors int
	failures  int
}

func NewStream(list Lister, cfg StreamConfig) *Stream {
	if cfg.MinWait <= 0 {
		cfg.MinWait = time.Second
	}
	if cfg.MaxWait < cfg.MinWait {
		cfg.MaxWait = 16 * cfg.MinWait
	}
	if cfg.MaxConsecutiveErrors <= 0 {
		cfg.MaxConsecutiveErrors = 10
	}

	seen, _ := lru.New[string, struct{}](seenCapacity)

	wait := &backoff.ExponentialBackOff{
		InitialInterval: cfg.MinWait,
		Multiplier:      2,
		MaxInterval:     cfg.MaxWait,
	}
	wait.Reset()

	return &Stream{
		name:      cfg.Name,
		list:      list,
		seen:      seen,
		wait:      wait,
		maxErrors: cfg.MaxConsecutiveErrors,
	}
}

// CommentStream streams new comments of a subreddit.
func CommentStream(c *Client, subreddit string, cfg StreamConfig) *Stream {
	if cfg.Name == "" {
		cfg.Name = "comments"
	}
	return NewStream(func(ctx context.Context) ([]domain.Node, error) {
		return c.Comments(ctx, subreddit)
	}, cfg)
}

// PostStream streams new submissions of a subreddit.
func PostStream(c *Client, subreddit string, cfg StreamConfig) *Stream {
	if cfg.Name == "" {
		cfg.Name = "submissions"
	}
	return NewStream(func(ctx context.Context) ([]domain.Node, error) {
		return c.NewPosts(ctx, subreddit)
	}, cfg)
}

func (s *Stream) Name() string {
	return s.name
}

// Next blocks until a new item is available or ctx is done.
func (s *Stream) Next(ctx context.Context) (domain.Node, error) {
	for {
		if len(s.pending) > 0 {
			node := s.pending[0]
			s.pending = s.pending[1:]
			return node, nil
		}

		if err := ctx.Err(); err != nil {
			return domain.Node{}, err
		}

		nodes, err := s.list(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Node{}, ctx.Err()
			}
			if IsPermanent(err) {
				return domain.Node{}, fmt.Errorf("%s stream: %w", s.name, err)
			}
			// Outages and rate limits are waited out at MaxWait for as long
			// as they last; only unexplained failures use up the budget.
			temporary := IsTemporary(err)
			if !temporary {
				s.failures++
				if s.failures >= s.maxErrors {
					return domain.Node{}, fmt.Errorf("%s stream: %d consecutive poll failures: %w", s.name, s.failures, err)
				}
			}
			delay := s.wait.NextBackOff()
			slog.WarnContext(ctx, "poll failed, backing off",
				"stream", s.name,
				"temporary", temporary,
				"consecutive_errors", s.failures,
				"next_in", delay,
				"error", err)
			if err := sleep(ctx, delay); err != nil {
				return domain.Node{}, err
			}
			continue
		}
		s.failures = 0

		fresh := s.collect(nodes)
		if !s.seeded {
			s.seeded = true
			slog.DebugContext(ctx, "stream seeded with existing items",
				"stream", s.name,
				"items", len(nodes))
			continue
		}

		if len(fresh) == 0 {
			if err := sleep(ctx, s.wait.NextBackOff()); err != nil {
				return domain.Node{}, err
			}
			continue
		}

		s.wait.Reset()
		s.pending = fresh
	}
}

// collect marks nodes as seen and returns the unseen ones oldest first.
func (s *Stream) collect(nodes []domain.Node) []domain.Node {
	var fresh []domain.Node
	for i := len(nodes) - 1; i >= 0; i-- {
		key := nodes[i].Fullname()
		if s.seen.Contains(key) {
			continue
		}
		s.seen.Add(key, struct{}{})
		fresh = append(fresh, nodes[i])
	}
	return fresh
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
