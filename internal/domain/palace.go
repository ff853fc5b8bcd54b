package domain

import (
	"slices"
	"time"
)

// DefaultPalaceID is the identifier given to a palace created from scratch.
const DefaultPalaceID = "default-palace"

// Palace is the persisted root of a memory palace: its identifier, the cards in
// insertion order, and the review streak bookkeeping.
type Palace struct {
	ID            string
	Cards         []Card
	Streak        int       // Consecutive UTC days with at least one review
	LastSessionAt time.Time // Last review instant; zero if never reviewed
}

// Locus is a named location in the palace that cards are anchored to.
type Locus struct {
	ID   string `mapstructure:"id" json:"id" validate:"required"`
	Name string `mapstructure:"name" json:"name"`
}

// NewPalace returns an empty palace with the default identifier.
func NewPalace() *Palace {
	return &Palace{
		ID:    DefaultPalaceID,
		Cards: []Card{},
	}
}

// Clone returns a deep copy of the palace.
func (p *Palace) Clone() *Palace {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Cards = slices.Clone(p.Cards)
	if clone.Cards == nil {
		clone.Cards = []Card{}
	}
	return &clone
}

// IndexOf returns the position of the card with the given id, or -1.
func (p *Palace) IndexOf(id string) int {
	return slices.IndexFunc(p.Cards, func(c Card) bool { return c.ID == id })
}

// CountDue returns the number of cards due at now.
func (p *Palace) CountDue(now time.Time) int {
	n := 0
	for i := range p.Cards {
		if p.Cards[i].IsDue(now) {
			n++
		}
	}
	return n
}

// RecordSession updates the review streak for a review performed at now.
// Reviews on the same UTC day keep the streak, a review on the following day
// extends it, and any longer gap starts a new streak.
func (p *Palace) RecordSession(now time.Time) {
	now = now.UTC()
	today := truncateDay(now)

	switch {
	case p.LastSessionAt.IsZero():
		p.Streak = 1
	case truncateDay(p.LastSessionAt.UTC()).Equal(today):
		if p.Streak < 1 {
			p.Streak = 1
		}
	case truncateDay(p.LastSessionAt.UTC()).AddDate(0, 0, 1).Equal(today):
		p.Streak++
	default:
		p.Streak = 1
	}

	p.LastSessionAt = now
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
