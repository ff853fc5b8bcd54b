package palace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/mindpalace/internal/domain"
	"github.com/phrazzld/mindpalace/internal/store"
)

// Stats summarizes the palace for status displays.
type Stats struct {
	TotalCards    int
	DueCards      int
	TotalLoci     int
	Streak        int
	LastSessionAt time.Time
}

// LocusSummary is a locus together with its card counts.
type LocusSummary struct {
	Locus     domain.Locus
	CardCount int
	DueCount  int
}

// CardEdit lists the card content to change. Nil fields keep their current
// value.
type CardEdit struct {
	Front     *string
	Back      *string
	ImagePath *string
}

// IsEmpty reports whether the edit changes nothing.
func (e CardEdit) IsEmpty() bool {
	return e.Front == nil && e.Back == nil && e.ImagePath == nil
}

func (e CardEdit) applyTo(c *domain.Card) {
	if e.Front != nil {
		c.Front = *e.Front
	}
	if e.Back != nil {
		c.Back = *e.Back
	}
	if e.ImagePath != nil {
		c.ImagePath = *e.ImagePath
	}
}

// Service manages the cards of a single memory palace. It owns the in-memory
// palace, persists it after every mutation and schedules reviews.
//
// All methods are safe for concurrent use. Returned cards are copies; changing
// them has no effect on the palace.
type Service interface {
	// Load reads the palace from the store. When the palace is empty and sample
	// seeding is enabled, starter cards are created on the first two registered
	// loci and saved.
	//
	// Returns a ServiceError only when saving the seeded cards fails; the
	// loaded palace is kept in that case.
	Load(ctx context.Context) error

	// Save writes the current palace to the store.
	Save(ctx context.Context) error

	// Loci returns the registered loci followed by any locus referenced only by
	// cards, each with its card and due counts.
	Loci(ctx context.Context) []LocusSummary

	// CardsForLocus returns the cards anchored to locusID ordered by due date,
	// earliest first. Cards with equal due dates keep their insertion order.
	CardsForLocus(ctx context.Context, locusID string) ([]domain.Card, error)

	// OpenLocus is CardsForLocus, except that a blank card is created and saved
	// first when the locus has no cards.
	OpenLocus(ctx context.Context, locusID string) ([]domain.Card, error)

	// CreateBlankCard appends an empty card that is due immediately.
	CreateBlankCard(ctx context.Context, locusID string) (*domain.Card, error)

	// GetCard returns the card with the given id.
	//
	// Returns ErrCardNotFound when no such card exists.
	GetCard(ctx context.Context, id string) (*domain.Card, error)

	// UpdateCard applies edit to the text fields of the stored card with the
	// given id. Scheduling fields are never changed by an edit, so a review
	// recorded between reading and editing a card is kept.
	//
	// Returns ErrCardNotFound when no such card exists.
	UpdateCard(ctx context.Context, id string, edit CardEdit) (*domain.Card, error)

	// DeleteCard removes the card with the given id.
	//
	// Returns ErrCardNotFound when no such card exists.
	DeleteCard(ctx context.Context, id string) error

	// GradeCard records a review of the card, reschedules it and updates the
	// review streak.
	//
	// Returns ErrCardNotFound when no such card exists and an error wrapping
	// domain.ErrInvalidArgument when grade is not a defined grade.
	GradeCard(ctx context.Context, id string, grade domain.Grade) (*domain.Card, error)

	// PostponeCard pushes the card's due date back by days.
	//
	// Returns ErrCardNotFound when no such card exists and an error wrapping
	// domain.ErrInvalidArgument when days is less than 1.
	PostponeCard(ctx context.Context, id string, days int) (*domain.Card, error)

	// NextDueCard returns the due card with the earliest due date, restricted
	// to locusID unless it is empty.
	//
	// Returns ErrNoCardsDue when nothing is due.
	NextDueCard(ctx context.Context, locusID string) (*domain.Card, error)

	// Stats returns the current palace statistics.
	Stats(ctx context.Context) Stats
}

// Common error types for the palace Service
var (
	// ErrNoCardsDue indicates that no card is due for review.
	ErrNoCardsDue = errors.New("no cards due for review")

	// ErrCardNotFound indicates that the card does not exist.
	ErrCardNotFound = store.ErrCardNotFound

	// ErrLocusIDEmpty indicates that a locus ID was required but not given.
	ErrLocusIDEmpty = fmt.Errorf("%w: locus ID cannot be empty", domain.ErrInvalidArgument)
)

// ServiceError wraps errors from the palace service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "grade_card", "delete_card")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
