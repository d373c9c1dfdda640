package domain

import "time"

type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "Pending"
	ReviewStatusApproved ReviewStatus = "Approved"
	ReviewStatusRejected ReviewStatus = "Rejected"
)

// DefaultFactoidCategory is used when a learn command names no category.
const DefaultFactoidCategory = "General"

// Factoid is a curated piece of knowledge suggested from the community.
type Factoid struct {
	ID           string
	Content      string
	Summary      string
	Author       string // author of the original content
	Source       string // permalink URL of the original content
	Category     string
	SuggestedBy  string
	ReviewStatus ReviewStatus
	CreatedAt    time.Time
}
