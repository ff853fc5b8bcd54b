package store

import (
	"context"

	"github.com/phrazzld/mindpalace/internal/domain"
)

// PalaceStore loads and saves a whole palace document.
//
// Implementations are whole-document: Save replaces everything previously
// stored and LoadOrCreate returns everything, so callers never see a partially
// written palace.
type PalaceStore interface {
	// LoadOrCreate returns the stored palace. It never fails: when nothing is
	// stored, or the stored data cannot be read or parsed, the failure is logged
	// and a fresh domain.NewPalace() is returned.
	LoadOrCreate(ctx context.Context) *domain.Palace

	// Save replaces the stored palace with p.
	// Returns a StoreError wrapping the cause when the write fails.
	Save(ctx context.Context, p *domain.Palace) error
}
