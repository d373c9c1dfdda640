package domain

import "time"

// Observation records what the bot saw and concluded about one node.
type Observation struct {
	ID        int64
	ContentID string // fullname
	Kind      NodeKind
	Author    string
	Content   string
	Category  string
	SeeksHelp bool
	Flagged   bool
	CreatedAt time.Time
}
