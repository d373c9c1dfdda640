package brain

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pc1e0/comm/internal/domain"
)

// ParentResolver moves one step up a reply chain. It returns domain.ErrNoParent
// for root nodes.
type ParentResolver interface {
	Parent(ctx context.Context, node domain.Node) (domain.Node, error)
}

// ExtractContext walks from node up its parent chain and renders at most depth
// lines, oldest ancestor first. The walk ends early at a post, at a node without
// a parent, or at a parent that cannot be fetched; none of these is an error,
// so the transcript always holds at least the starting node.
func ExtractContext(ctx context.Context, resolver ParentResolver, node domain.Node, depth int) domain.Transcript {
	if depth <= 0 {
		depth = domain.DefaultContextDepth
	}

	lines := make([]string, 0, depth)
	current := node
	for i := 0; i < depth; i++ {
		if !current.Valid() {
			break
		}
		lines = append(lines, domain.FormatLine(current))

		if current.Kind == domain.NodeKindPost || i == depth-1 {
			break
		}

		parent, err := resolver.Parent(ctx, current)
		if err != nil {
			if !errors.Is(err, domain.ErrNoParent) {
				slog.DebugContext(ctx, "context walk stopped at unreachable parent",
					"node", current.Fullname(),
					"depth", i+1,
					"error", err)
			}
			break
		}
		current = parent
	}

	// collected newest first
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return domain.Transcript(lines)
}
