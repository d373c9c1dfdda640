package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pc1e0/comm/internal/domain"
)

const (
	DefaultLearnCommand = "!learn this"
	redditBaseURL       = "https://www.reddit.com"
)

// ParseLearnCommand reports whether body starts with command, ignoring case
// and surrounding space. Text after the command names the factoid category.
func ParseLearnCommand(body, command string) (category string, ok bool) {
	body = strings.TrimSpace(body)
	command = strings.TrimSpace(command)
	if command == "" || len(body) < len(command) || !strings.EqualFold(body[:len(command)], command) {
		return "", false
	}

	rest := body[len(command):]
	// "!learn thisx" is not the command.
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '\n' && rest[0] != ':' {
		return "", false
	}
	category = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	if category == "" {
		category = domain.DefaultFactoidCategory
	}
	return category, true
}

// Learn stores the parent of a learn-command comment as a factoid and returns
// its id. The suggestion is approved when it comes from the admin account.
// A parent flagged by moderation is recorded and dropped; the id is then empty.
func (p *Pipeline) Learn(ctx context.Context, command domain.Node, category string) (string, error) {
	parent, err := p.deps.Resolver.Parent(ctx, command)
	if err != nil {
		return "", fmt.Errorf("resolving learn target for %s: %w", command.Fullname(), err)
	}

	content := parent.Content()
	flagged, err := p.deps.Moderator.Moderate(ctx, content)
	if err != nil {
		return "", err
	}
	if flagged {
		slog.InfoContext(ctx, "learn target flagged by moderation, not stored",
			"target", parent.Fullname(),
			"suggested_by", command.Author())
		p.observe(ctx, parent, nil, true)
		return "", nil
	}

	summary, err := p.deps.Summarizer.Summarize(ctx, content)
	if err != nil {
		return "", err
	}

	suggestedBy := command.Author()
	status := domain.ReviewStatusPending
	if p.cfg.AdminUser != "" && strings.EqualFold(suggestedBy, p.cfg.AdminUser) {
		status = domain.ReviewStatusApproved
	}

	factoid := domain.Factoid{
		Content:      content,
		Summary:      summary,
		Author:       parent.Author(),
		Source:       sourceURL(parent),
		Category:     category,
		SuggestedBy:  suggestedBy,
		ReviewStatus: status,
	}

	id, err := p.deps.Knowledge.WriteFactoid(ctx, factoid)
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "factoid written",
		"factoid_id", id,
		"source", factoid.Source,
		"category", category,
		"suggested_by", suggestedBy,
		"review_status", status)
	return id, nil
}

func sourceURL(n domain.Node) string {
	permalink := n.Permalink()
	if permalink == "" {
		return ""
	}
	return redditBaseURL + permalink
}
