package domain

import (
	"fmt"
	"strings"
)

// DefaultContextDepth is how many nodes a transcript holds unless configured otherwise.
const DefaultContextDepth = 5

// Transcript is a reply chain rendered oldest ancestor first.
type Transcript []string

// FormatLine renders one node as "{id}: {kind} | {author}: {text}".
func FormatLine(n Node) string {
	return fmt.Sprintf("%s: %s | %s: %s", n.ID(), n.Kind, n.Author(), n.Text())
}

func (t Transcript) String() string {
	return strings.Join(t, "\n")
}
