package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/mindpalace/internal/domain"
)

// Common errors
var (
	ErrNilCard      = errors.New("card cannot be nil")
	ErrInvalidGrade = fmt.Errorf("%w: invalid grade", domain.ErrInvalidArgument)
	ErrInvalidDays  = fmt.Errorf("%w: postpone days must be at least 1", domain.ErrInvalidArgument)
)

// Service defines the interface for SRS algorithm operations
type Service interface {
	// CalculateNextReview returns a copy of card scheduled for the given grade.
	// The card passed in is left untouched.
	CalculateNextReview(
		card *domain.Card,
		grade domain.Grade,
		now time.Time,
	) (*domain.Card, error)

	// PostponeReview returns a copy of card whose due date is pushed forward
	// by days, counted from the later of the current due date and now.
	PostponeReview(
		card *domain.Card,
		days int,
		now time.Time,
	) (*domain.Card, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// CalculateNextReview implements the Service interface
func (s *defaultService) CalculateNextReview(
	card *domain.Card,
	grade domain.Grade,
	now time.Time,
) (*domain.Card, error) {
	if card == nil {
		return nil, ErrNilCard
	}

	if !grade.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGrade, int(grade))
	}

	next := card.Clone()
	ApplyGrade(next, grade, now, s.params)

	return next, nil
}

// PostponeReview implements the Service interface
func (s *defaultService) PostponeReview(
	card *domain.Card,
	days int,
	now time.Time,
) (*domain.Card, error) {
	if card == nil {
		return nil, ErrNilCard
	}

	if days < 1 {
		return nil, ErrInvalidDays
	}

	next := card.Clone()
	InitializeIfNew(next, now, s.params)

	from := next.DueAt
	if from.Before(now) {
		from = now.UTC()
	}
	next.DueAt = from.AddDate(0, 0, days)

	return next, nil
}
