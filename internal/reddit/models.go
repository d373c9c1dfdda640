package reddit

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pc1e0/comm/internal/domain"
)

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type commentData struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	ParentID   string  `json:"parent_id"`
	LinkID     string  `json:"link_id"`
	Permalink  string  `json:"permalink"`
	Subreddit  string  `json:"subreddit"`
	CreatedUTC float64 `json:"created_utc"`
}

type postData struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	URL        string  `json:"url"`
	IsSelf     bool    `json:"is_self"`
	Permalink  string  `json:"permalink"`
	Subreddit  string  `json:"subreddit"`
	CreatedUTC float64 `json:"created_utc"`
}

// nodes converts listing children to nodes, skipping kinds other than
// comments and posts.
func (l listing) nodes() ([]domain.Node, error) {
	out := make([]domain.Node, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		node, ok, err := child.node()
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, node)
		}
	}
	return out, nil
}

func (t thing) node() (domain.Node, bool, error) {
	switch t.Kind {
	case "t1":
		var c commentData
		if err := json.Unmarshal(t.Data, &c); err != nil {
			return domain.Node{}, false, fmt.Errorf("decoding comment: %w", err)
		}
		return domain.NewCommentNode(domain.Comment{
			ID:        c.ID,
			Author:    domain.AuthorPtr(c.Author),
			Body:      c.Body,
			ParentID:  c.ParentID,
			LinkID:    c.LinkID,
			Permalink: c.Permalink,
			Subreddit: c.Subreddit,
			CreatedAt: unixTime(c.CreatedUTC),
		}), true, nil
	case "t3":
		var p postData
		if err := json.Unmarshal(t.Data, &p); err != nil {
			return domain.Node{}, false, fmt.Errorf("decoding post: %w", err)
		}
		return domain.NewPostNode(domain.Post{
			ID:        p.ID,
			Author:    domain.AuthorPtr(p.Author),
			Title:     p.Title,
			Body:      p.Selftext,
			URL:       p.URL,
			IsSelf:    p.IsSelf,
			Permalink: p.Permalink,
			Subreddit: p.Subreddit,
			CreatedAt: unixTime(p.CreatedUTC),
		}), true, nil
	}
	return domain.Node{}, false, nil
}

func unixTime(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
