package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pc1e0/comm/internal/domain"
)

const (
	defaultBaseURL = "https://oauth.reddit.com"
	// listingLimit is the largest page Reddit serves.
	listingLimit = 100
)

type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// Client talks to the Reddit API. It is safe for concurrent use; all requests
// share one rate limiter.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient        *http.Client
	baseURL           string
	tokenURL          string
	requestsPerMinute int
}

// WithHTTPClient replaces the OAuth client, e.g. for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimRight(u, "/") }
}

func WithTokenURL(u string) Option {
	return func(o *clientOptions) { o.tokenURL = u }
}

// WithRequestsPerMinute caps outgoing requests. Zero or less disables limiting.
func WithRequestsPerMinute(n int) Option {
	return func(o *clientOptions) { o.requestsPerMinute = n }
}

func New(ctx context.Context, creds Credentials, opts ...Option) *Client {
	o := clientOptions{
		baseURL:           defaultBaseURL,
		tokenURL:          tokenURL,
		requestsPerMinute: 60,
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = newOAuthClient(ctx, creds, o.tokenURL)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if o.requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(o.requestsPerMinute)), 1)
	}

	return &Client{
		http:      httpClient,
		baseURL:   o.baseURL,
		userAgent: creds.UserAgent,
		limiter:   limiter,
	}
}

// Comments returns the newest comments of a subreddit, newest first.
func (c *Client) Comments(ctx context.Context, subreddit string) ([]domain.Node, error) {
	return c.listing(ctx, "comments", "/r/"+url.PathEscape(subreddit)+"/comments")
}

// NewPosts returns the newest submissions of a subreddit, newest first.
func (c *Client) NewPosts(ctx context.Context, subreddit string) ([]domain.Node, error) {
	return c.listing(ctx, "new posts", "/r/"+url.PathEscape(subreddit)+"/new")
}

// Info resolves fullnames to nodes. Unknown fullnames are left out.
func (c *Client) Info(ctx context.Context, fullnames ...string) ([]domain.Node, error) {
	if len(fullnames) == 0 {
		return nil, nil
	}
	q := url.Values{"id": {strings.Join(fullnames, ",")}}
	return c.get(ctx, "info", "/api/info", q)
}

// Node resolves a single fullname.
func (c *Client) Node(ctx context.Context, fullname string) (domain.Node, error) {
	if _, ok := domain.KindFromFullname(fullname); !ok {
		return domain.Node{}, fmt.Errorf("unsupported fullname %q: %w", fullname, ErrNotFound)
	}
	nodes, err := c.Info(ctx, fullname)
	if err != nil {
		return domain.Node{}, err
	}
	if len(nodes) == 0 {
		return domain.Node{}, fmt.Errorf("%s: %w", fullname, ErrNotFound)
	}
	return nodes[0], nil
}

// Parent resolves the node a comment replies to. Posts have no parent.
func (c *Client) Parent(ctx context.Context, node domain.Node) (domain.Node, error) {
	if node.Kind != domain.NodeKindComment || node.Comment == nil || node.Comment.ParentID == "" {
		return domain.Node{}, domain.ErrNoParent
	}
	return c.Node(ctx, node.Comment.ParentID)
}

func (c *Client) listing(ctx context.Context, op, path string) ([]domain.Node, error) {
	q := url.Values{"limit": {fmt.Sprint(listingLimit)}}
	return c.get(ctx, op, path, q)
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values) ([]domain.Node, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q.Set("raw_json", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("reddit %s: decoding listing: %w", op, err)
	}

	nodes, err := l.nodes()
	if err != nil {
		return nil, fmt.Errorf("reddit %s: %w", op, err)
	}

	slog.DebugContext(ctx, "reddit request completed",
		"op", op,
		"path", path,
		"items", len(nodes),
		"duration_ms", time.Since(start).Milliseconds())

	return nodes, nil
}
