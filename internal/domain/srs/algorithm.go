package srs

import (
	"math"
	"time"

	"github.com/phrazzld/mindpalace/internal/domain"
)

// InitializeIfNew normalizes a card's scheduling fields so that cards created
// with zero-valued defaults, or loaded with corrupt numbers, can be graded.
//
// A non-positive or NaN ease becomes params.InitialEase, an unset due date
// becomes now, and negative interval or counters are reset to zero. Calling it
// more than once has no further effect.
func InitializeIfNew(card *domain.Card, now time.Time, params *Params) {
	if card.Ease <= 0 || math.IsNaN(card.Ease) || math.IsInf(card.Ease, 0) {
		card.Ease = params.InitialEase
	}
	if card.DueAt.IsZero() {
		card.DueAt = now.UTC()
	}
	if card.IntervalDays < 0 {
		card.IntervalDays = 0
	}
	if card.Reps < 0 {
		card.Reps = 0
	}
	if card.Lapses < 0 {
		card.Lapses = 0
	}
}

// easeDelta is the SM-2 ease adjustment for quality score q.
//
//   - q=0 (Again): -0.32
//   - q=2 (Hard):   0.00
//   - q=3 (Good):  +0.10
//   - q=4 (Easy):  +0.16
func easeDelta(q int) float64 {
	d := float64(3 - q)
	return 0.1 - d*(0.08+d*0.02)
}

// calculateNewEase applies the grade's adjustment and clamps to params.MinEase.
func calculateNewEase(current float64, q int, params *Params) float64 {
	return math.Max(params.MinEase, current+easeDelta(q))
}

// calculateSuccessInterval returns the interval after a successful review.
// reps is the repetition count after the review has been counted, and ease is
// the ease factor before this review's adjustment.
//
// Halfway products round to the even neighbour.
func calculateSuccessInterval(currentInterval, reps int, ease float64, params *Params) int {
	switch reps {
	case 1:
		return params.FirstInterval
	case 2:
		return params.SecondInterval
	default:
		return int(math.RoundToEven(float64(currentInterval) * ease))
	}
}

// ApplyGrade schedules the card's next review in place.
//
// Grades whose quality score is below params.PassThreshold are lapses: the
// repetition count resets, the lapse count increments and the card comes back
// after one day. Otherwise the repetition count increments and the interval
// follows the 1 day, 6 days, interval*ease progression. Both branches adjust the
// ease factor, which never falls below params.MinEase. The due date is always
// now plus the new interval in calendar days (UTC).
//
// The grade is not validated here; use Service for checked grading.
func ApplyGrade(card *domain.Card, grade domain.Grade, now time.Time, params *Params) {
	InitializeIfNew(card, now, params)
	q := int(grade)

	if q < params.PassThreshold {
		card.Reps = 0
		card.Lapses++
		card.IntervalDays = 1
	} else {
		card.Reps++
		card.IntervalDays = calculateSuccessInterval(card.IntervalDays, card.Reps, card.Ease, params)
	}
	card.Ease = calculateNewEase(card.Ease, q, params)

	card.DueAt = now.UTC().AddDate(0, 0, card.IntervalDays)
}
