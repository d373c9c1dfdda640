package dto

import (
	"strconv"
	"time"

	"github.com/pc1e0/comm/internal/domain"
)

type ObservationResponse struct {
	ID        string    `json:"id"` // string so JavaScript clients keep full precision
	ContentID string    `json:"content_id"`
	Kind      string    `json:"kind"`
	Author    string    `json:"author"`
	Category  string    `json:"category,omitempty"`
	SeeksHelp bool      `json:"seeks_help"`
	Flagged   bool      `json:"flagged"`
	CreatedAt time.Time `json:"created_at"`
}

func ToObservationResponse(o domain.Observation) ObservationResponse {
	return ObservationResponse{
		ID:        strconv.FormatInt(o.ID, 10),
		ContentID: o.ContentID,
		Kind:      string(o.Kind),
		Author:    o.Author,
		Category:  o.Category,
		SeeksHelp: o.SeeksHelp,
		Flagged:   o.Flagged,
		CreatedAt: o.CreatedAt,
	}
}

func ToObservationResponses(obs []domain.Observation) []ObservationResponse {
	result := make([]ObservationResponse, len(obs))
	for i, o := range obs {
		result[i] = ToObservationResponse(o)
	}
	return result
}
