// Package pipeline turns feed events into moderation, classification and
// knowledge writes.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pc1e0/comm/common/logger"
	"github.com/pc1e0/comm/internal/brain"
	"github.com/pc1e0/comm/internal/domain"
	"github.com/pc1e0/comm/internal/feed"
	"github.com/pc1e0/comm/internal/store"
)

type Moderator interface {
	Moderate(ctx context.Context, text string) (bool, error)
}

type Classifier interface {
	Classify(ctx context.Context, inquiry string, transcript domain.Transcript) (domain.Classification, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// FactoidWriter is satisfied by *knowledge.Store.
type FactoidWriter interface {
	WriteFactoid(ctx context.Context, f domain.Factoid) (string, error)
}

type Config struct {
	ContextDepth int
	LearnCommand string // comment prefix that triggers a knowledge write
	AdminUser    string // suggestions from this account are approved on write
}

type Deps struct {
	Resolver     brain.ParentResolver
	Moderator    Moderator
	Classifier   Classifier
	Summarizer   Summarizer
	Knowledge    FactoidWriter
	Observations store.ObservationStore // optional
}

// Pipeline holds no per-event state; one instance serves both listeners.
type Pipeline struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) *Pipeline {
	if cfg.ContextDepth <= 0 {
		cfg.ContextDepth = domain.DefaultContextDepth
	}
	if strings.TrimSpace(cfg.LearnCommand) == "" {
		cfg.LearnCommand = DefaultLearnCommand
	}
	if deps.Observations == nil {
		deps.Observations = store.NoopObservationStore{}
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// HandleComment runs the comment path: a learn command becomes a knowledge
// write, anything else is moderated and classified with its reply chain.
func (p *Pipeline) HandleComment(ctx context.Context, event feed.Event) error {
	node := event.Node
	if node.Kind != domain.NodeKindComment || !node.Valid() {
		return fmt.Errorf("comment handler got %s node %q", node.Kind, node.Fullname())
	}

	if category, ok := ParseLearnCommand(node.Comment.Body, p.cfg.LearnCommand); ok {
		ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "comm.pipeline.learn"})
		_, err := p.Learn(ctx, node, category)
		return err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "comm.pipeline.comment"})

	transcript := brain.ExtractContext(ctx, p.deps.Resolver, node, p.cfg.ContextDepth)
	full := transcript.String()

	flagged, err := p.deps.Moderator.Moderate(ctx, full)
	if err != nil {
		return err
	}
	if flagged {
		slog.InfoContext(ctx, "comment flagged by moderation, skipping",
			"author", node.Author(),
			"depth", len(transcript))
		p.observe(ctx, node, nil, true)
		return nil
	}

	slog.InfoContext(ctx, "comment context", "depth", len(transcript), "transcript", full)

	// The leaf is the inquiry; the classifier sees the ancestors as context.
	result, err := p.deps.Classifier.Classify(ctx, node.Comment.Body, transcript[:len(transcript)-1])
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "comment classified",
		"author", node.Author(),
		"seeks_help", result.SeeksHelp,
		"category", result.Category)
	p.observe(ctx, node, &result, false)
	return nil
}

// HandlePost moderates and classifies a new submission on its own.
func (p *Pipeline) HandlePost(ctx context.Context, event feed.Event) error {
	node := event.Node
	if node.Kind != domain.NodeKindPost || !node.Valid() {
		return fmt.Errorf("post handler got %s node %q", node.Kind, node.Fullname())
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "comm.pipeline.post"})

	content := node.Content()
	slog.InfoContext(ctx, "new post",
		"author", node.Author(),
		"title", node.Post.Title,
		"content", logger.Truncate(content, 500))

	flagged, err := p.deps.Moderator.Moderate(ctx, content)
	if err != nil {
		return err
	}
	if flagged {
		slog.InfoContext(ctx, "post flagged by moderation, skipping", "author", node.Author())
		p.observe(ctx, node, nil, true)
		return nil
	}

	result, err := p.deps.Classifier.Classify(ctx, content, domain.Transcript{domain.FormatLine(node)})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "post classified",
		"author", node.Author(),
		"seeks_help", result.SeeksHelp,
		"category", result.Category)
	p.observe(ctx, node, &result, false)
	return nil
}

// observe records the outcome. A failed write is logged and does not fail the
// event, so a database outage never triggers reprocessing.
func (p *Pipeline) observe(ctx context.Context, node domain.Node, result *domain.Classification, flagged bool) {
	obs := &domain.Observation{
		ContentID: node.Fullname(),
		Kind:      node.Kind,
		Author:    node.Author(),
		Content:   node.Content(),
		Flagged:   flagged,
	}
	if result != nil {
		obs.SeeksHelp = result.SeeksHelp
		obs.Category = result.Category
	}

	if err := p.deps.Observations.Create(ctx, obs); err != nil {
		slog.WarnContext(ctx, "failed to record observation", "error", err)
	}
}
