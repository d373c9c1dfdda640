package pipeline_test

import (
	"context"
	"errors"
	"time"

	"github.com/pc1e0/comm/internal/domain"
	"github.com/pc1e0/comm/internal/feed"
)

type fakeResolver struct {
	nodes map[string]domain.Node
}

func (r *fakeResolver) Parent(_ context.Context, n domain.Node) (domain.Node, error) {
	if n.Kind == domain.NodeKindPost {
		return domain.Node{}, domain.ErrNoParent
	}
	parent, ok := r.nodes[n.Comment.ParentID]
	if !ok {
		return domain.Node{}, errors.New("parent deleted")
	}
	return parent, nil
}

type fakeModerator struct {
	flagged bool
	err     error
	inputs  []string
}

func (m *fakeModerator) Moderate(_ context.Context, text string) (bool, error) {
	m.inputs = append(m.inputs, text)
	return m.flagged, m.err
}

type classifyCall struct {
	inquiry    string
	transcript domain.Transcript
}

type fakeClassifier struct {
	result domain.Classification
	err    error
	calls  []classifyCall
}

func (c *fakeClassifier) Classify(_ context.Context, inquiry string, transcript domain.Transcript) (domain.Classification, error) {
	c.calls = append(c.calls, classifyCall{inquiry: inquiry, transcript: transcript})
	return c.result, c.err
}

type fakeSummarizer struct {
	summary string
	err     error
	inputs  []string
}

func (s *fakeSummarizer) Summarize(_ context.Context, content string) (string, error) {
	s.inputs = append(s.inputs, content)
	return s.summary, s.err
}

type fakeKnowledge struct {
	factoids []domain.Factoid
	err      error
}

func (k *fakeKnowledge) WriteFactoid(_ context.Context, f domain.Factoid) (string, error) {
	if k.err != nil {
		return "", k.err
	}
	k.factoids = append(k.factoids, f)
	return "factoid-1", nil
}

type fakeObservations struct {
	created []domain.Observation
	err     error
}

func (o *fakeObservations) Create(_ context.Context, obs *domain.Observation) error {
	if o.err != nil {
		return o.err
	}
	o.created = append(o.created, *obs)
	return nil
}

func (o *fakeObservations) Get(context.Context, int64) (*domain.Observation, error) {
	return nil, errors.New("not implemented")
}

func (o *fakeObservations) ListRecent(context.Context, int) ([]domain.Observation, error) {
	return o.created, nil
}

func author(name string) *string { return &name }

func post(id, by, title, body string) domain.Node {
	return domain.NewPostNode(domain.Post{
		ID:        id,
		Author:    author(by),
		Title:     title,
		Body:      body,
		IsSelf:    true,
		Permalink: "/r/test/comments/" + id + "/",
		CreatedAt: time.Unix(1700000000, 0),
	})
}

func comment(id string, by *string, body, parent string) domain.Node {
	return domain.NewCommentNode(domain.Comment{
		ID:        id,
		Author:    by,
		Body:      body,
		ParentID:  parent,
		LinkID:    "t3_p0",
		Permalink: "/r/test/comments/p0/_/" + id + "/",
	})
}

func event(n domain.Node) feed.Event {
	return feed.NewEvent(n, nil)
}
