package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultEase is the ease factor a freshly created card starts with.
const DefaultEase = 2.5

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardLocusIDEmpty is returned when a card is not anchored to a locus.
	ErrCardLocusIDEmpty = errors.New("card locus ID cannot be empty")

	// ErrInvalidInterval is returned when a card has a negative interval.
	ErrInvalidInterval = errors.New("interval must be greater than or equal to 0")

	// ErrInvalidCounter is returned when reps or lapses are negative.
	ErrInvalidCounter = errors.New("review counters must be greater than or equal to 0")
)

// Card is a single flashcard anchored to a locus in the palace. The scheduling
// fields (DueAt, IntervalDays, Ease, Reps, Lapses) are owned by the srs package.
type Card struct {
	ID           string    `json:"id"`
	LocusID      string    `json:"locus_id"`
	Front        string    `json:"front"`
	Back         string    `json:"back"`
	ImagePath    string    `json:"image_path,omitempty"`
	DueAt        time.Time `json:"due_at"`        // Zero means not yet scheduled
	IntervalDays int       `json:"interval_days"` // Days between last review and DueAt
	Ease         float64   `json:"ease"`          // Ease factor, never below 1.3 once graded
	Reps         int       `json:"reps"`          // Consecutive successful reviews
	Lapses       int       `json:"lapses"`        // Lifetime failed reviews
}

// NewBlankCard creates an empty card for the given locus that is due
// immediately.
func NewBlankCard(locusID string, now time.Time) (*Card, error) {
	card := &Card{
		ID:           uuid.NewString(),
		LocusID:      locusID,
		Ease:         DefaultEase,
		IntervalDays: 0,
		DueAt:        now.UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returned errors wrap ErrValidation.
func (c *Card) Validate() error {
	var err error
	switch {
	case c.ID == "":
		err = ErrCardIDEmpty
	case c.LocusID == "":
		err = ErrCardLocusIDEmpty
	case c.IntervalDays < 0:
		err = ErrInvalidInterval
	case c.Reps < 0 || c.Lapses < 0:
		err = ErrInvalidCounter
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// IsDue reports whether the card should be reviewed at now.
func (c *Card) IsDue(now time.Time) bool {
	return !c.DueAt.After(now)
}

// Clone returns a copy of the card that shares no state with the receiver.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
