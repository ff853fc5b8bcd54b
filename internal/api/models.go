package api

import (
	"time"

	"github.com/phrazzld/mindpalace/internal/domain"
	"github.com/phrazzld/mindpalace/internal/service/palace"
)

// CardResponse represents the response data for a card.
type CardResponse struct {
	ID           string     `json:"id"`
	LocusID      string     `json:"locus_id"`
	Front        string     `json:"front"`
	Back         string     `json:"back"`
	ImagePath    string     `json:"image_path,omitempty"`
	DueAt        *time.Time `json:"due_at"`
	IntervalDays int        `json:"interval_days"`
	Ease         float64    `json:"ease"`
	Reps         int        `json:"reps"`
	Lapses       int        `json:"lapses"`
}

// LocusResponse represents a locus with its card counts.
type LocusResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CardCount int    `json:"card_count"`
	DueCount  int    `json:"due_count"`
}

// StatsResponse represents the palace statistics.
type StatsResponse struct {
	TotalCards    int        `json:"total_cards"`
	DueCards      int        `json:"due_cards"`
	TotalLoci     int        `json:"total_loci"`
	Streak        int        `json:"streak"`
	LastSessionAt *time.Time `json:"last_session_at"`
}

// UpdateCardRequest is the body of PUT /api/cards/{id}. Omitted fields keep
// their current values.
type UpdateCardRequest struct {
	Front     *string `json:"front"      validate:"omitempty,max=4000"`
	Back      *string `json:"back"       validate:"omitempty,max=4000"`
	ImagePath *string `json:"image_path" validate:"omitempty,max=1024"`
}

// SubmitAnswerRequest represents the request body for grading a card.
type SubmitAnswerRequest struct {
	Grade string `json:"grade" validate:"required,oneof=again hard good easy"`
}

// PostponeCardRequest represents the request body for postponing a card.
type PostponeCardRequest struct {
	Days int `json:"days" validate:"required,gte=1,lte=365"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func cardToResponse(c *domain.Card) CardResponse {
	return CardResponse{
		ID:           c.ID,
		LocusID:      c.LocusID,
		Front:        c.Front,
		Back:         c.Back,
		ImagePath:    c.ImagePath,
		DueAt:        optionalTime(c.DueAt),
		IntervalDays: c.IntervalDays,
		Ease:         c.Ease,
		Reps:         c.Reps,
		Lapses:       c.Lapses,
	}
}

func cardsToResponse(cards []domain.Card) []CardResponse {
	resp := make([]CardResponse, 0, len(cards))
	for i := range cards {
		resp = append(resp, cardToResponse(&cards[i]))
	}
	return resp
}

func statsToResponse(s palace.Stats) StatsResponse {
	return StatsResponse{
		TotalCards:    s.TotalCards,
		DueCards:      s.DueCards,
		TotalLoci:     s.TotalLoci,
		Streak:        s.Streak,
		LastSessionAt: optionalTime(s.LastSessionAt),
	}
}
