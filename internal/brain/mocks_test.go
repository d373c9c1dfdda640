package brain_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/openai/openai-go"

	"github.com/pc1e0/comm/common/llm"
	"github.com/pc1e0/comm/internal/domain"
)

// fastRetry keeps retry tests quick.
var fastRetry = llm.RetryPolicy{
	MaxTries:        3,
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
}

// mockLLMClient implements llm.Client for testing.
type mockLLMClient struct {
	mu          sync.Mutex
	completeFn  func(ctx context.Context, req llm.Request) (*llm.Response, error)
	moderateFn  func(ctx context.Context, input string) (*llm.Moderation, error)
	requests    []llm.Request
	completions int
	moderations int
}

func (m *mockLLMClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.completions++
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockLLMClient) Moderate(ctx context.Context, input string) (*llm.Moderation, error) {
	m.mu.Lock()
	m.moderations++
	m.mu.Unlock()
	if m.moderateFn != nil {
		return m.moderateFn(ctx, input)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockLLMClient) Model() string {
	return "test-model"
}

func replyWith(content string) func(context.Context, llm.Request) (*llm.Response, error) {
	return func(context.Context, llm.Request) (*llm.Response, error) {
		return &llm.Response{Content: content}, nil
	}
}

func apiError(status int) error {
	req, _ := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil)
	return &openai.Error{
		StatusCode: status,
		Request:    req,
		Response:   &http.Response{StatusCode: status},
	}
}

// chainResolver serves parents from an in-memory map keyed by fullname.
type chainResolver struct {
	nodes   map[string]domain.Node
	failOn  map[string]error
	fetched []string
}

func newChainResolver(nodes ...domain.Node) *chainResolver {
	r := &chainResolver{nodes: map[string]domain.Node{}, failOn: map[string]error{}}
	for _, n := range nodes {
		r.nodes[n.Fullname()] = n
	}
	return r
}

func (r *chainResolver) Parent(_ context.Context, node domain.Node) (domain.Node, error) {
	if node.Kind != domain.NodeKindComment || node.Comment.ParentID == "" {
		return domain.Node{}, domain.ErrNoParent
	}
	parentID := node.Comment.ParentID
	r.fetched = append(r.fetched, parentID)
	if err, ok := r.failOn[parentID]; ok {
		return domain.Node{}, err
	}
	parent, ok := r.nodes[parentID]
	if !ok {
		return domain.Node{}, fmt.Errorf("fetching %s: not found", parentID)
	}
	return parent, nil
}

func post(id, title string) domain.Node {
	return domain.NewPostNode(domain.Post{
		ID:     id,
		Author: domain.AuthorPtr("op"),
		Title:  title,
		IsSelf: true,
	})
}

func comment(id, parent, author, body string) domain.Node {
	return domain.NewCommentNode(domain.Comment{
		ID:       id,
		Author:   domain.AuthorPtr(author),
		Body:     body,
		ParentID: parent,
	})
}

// commentChain builds a post p0 with n comments c1..cn, each replying to the previous one.
func commentChain(n int) []domain.Node {
	nodes := []domain.Node{post("p0", "Where is my order?")}
	parent := "t3_p0"
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("c%d", i)
		nodes = append(nodes, comment(id, parent, fmt.Sprintf("user%d", i), fmt.Sprintf("reply %d", i)))
		parent = "t1_" + id
	}
	return nodes
}
