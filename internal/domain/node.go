package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrNoParent marks the top of a reply chain. It ends a context walk and is not a failure.
var ErrNoParent = errors.New("node has no parent")

// UnknownAuthor stands in for deleted or removed accounts.
const UnknownAuthor = "Unknown"

// NodeKind tags which variant of Node is populated.
type NodeKind string

const (
	NodeKindPost    NodeKind = "post"
	NodeKindComment NodeKind = "comment"
)

// Reddit fullname prefixes.
const (
	CommentPrefix = "t1_"
	PostPrefix    = "t3_"
)

// Node is a post or a comment. Exactly one of Post and Comment is set,
// matching Kind. Build nodes with NewPostNode and NewCommentNode.
type Node struct {
	Kind    NodeKind
	Post    *Post
	Comment *Comment
}

// Post is a submission. It is always the root of a reply chain.
type Post struct {
	ID        string
	Author    *string // nil when the account is gone
	Title     string
	Body      string // self text; empty for link posts
	URL       string
	IsSelf    bool
	Permalink string
	Subreddit string
	CreatedAt time.Time
}

// Comment is a reply to a post or to another comment.
type Comment struct {
	ID        string
	Author    *string
	Body      string
	ParentID  string // fullname: t1_ for a comment, t3_ for a post
	LinkID    string // fullname of the post the comment lives under
	Permalink string
	Subreddit string
	CreatedAt time.Time
}

func NewPostNode(p Post) Node {
	return Node{Kind: NodeKindPost, Post: &p}
}

func NewCommentNode(c Comment) Node {
	return Node{Kind: NodeKindComment, Comment: &c}
}

// ID returns the short id (without the kind prefix).
func (n Node) ID() string {
	switch n.Kind {
	case NodeKindPost:
		return n.Post.ID
	case NodeKindComment:
		return n.Comment.ID
	}
	return ""
}

// Fullname returns the prefixed id Reddit uses for lookups.
func (n Node) Fullname() string {
	switch n.Kind {
	case NodeKindPost:
		return PostPrefix + n.Post.ID
	case NodeKindComment:
		return CommentPrefix + n.Comment.ID
	}
	return ""
}

// Author returns the author name or UnknownAuthor.
func (n Node) Author() string {
	var author *string
	switch n.Kind {
	case NodeKindPost:
		author = n.Post.Author
	case NodeKindComment:
		author = n.Comment.Author
	}
	if author == nil || *author == "" {
		return UnknownAuthor
	}
	return *author
}

// Text is the line shown for the node in a transcript: a comment's body or a post's title.
func (n Node) Text() string {
	switch n.Kind {
	case NodeKindPost:
		return n.Post.Title
	case NodeKindComment:
		return n.Comment.Body
	}
	return ""
}

// Content is the full text of the node: title plus body or link for posts.
func (n Node) Content() string {
	switch n.Kind {
	case NodeKindPost:
		body := n.Post.Body
		if !n.Post.IsSelf || body == "" {
			body = n.Post.URL
		}
		if body == "" {
			return n.Post.Title
		}
		return n.Post.Title + "\n\n" + body
	case NodeKindComment:
		return n.Comment.Body
	}
	return ""
}

func (n Node) Permalink() string {
	switch n.Kind {
	case NodeKindPost:
		return n.Post.Permalink
	case NodeKindComment:
		return n.Comment.Permalink
	}
	return ""
}

// Valid reports whether the tag matches the populated variant.
func (n Node) Valid() bool {
	switch n.Kind {
	case NodeKindPost:
		return n.Post != nil && n.Comment == nil
	case NodeKindComment:
		return n.Comment != nil && n.Post == nil
	}
	return false
}

// KindFromFullname maps a fullname prefix to a node kind.
func KindFromFullname(fullname string) (NodeKind, bool) {
	switch {
	case strings.HasPrefix(fullname, CommentPrefix):
		return NodeKindComment, true
	case strings.HasPrefix(fullname, PostPrefix):
		return NodeKindPost, true
	}
	return "", false
}

// AuthorPtr normalizes a raw author name; deleted and empty accounts become nil.
func AuthorPtr(name string) *string {
	if name == "" || name == "[deleted]" || name == "[removed]" {
		return nil
	}
	return &name
}
