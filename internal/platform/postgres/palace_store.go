package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/mindpalace/internal/domain"
	"github.com/phrazzld/mindpalace/internal/platform/logger"
	"github.com/phrazzld/mindpalace/internal/store"
)

// PostgresPalaceStore implements store.PalaceStore on PostgreSQL.
// Each store instance is bound to a single palace row.
type PostgresPalaceStore struct {
	db       *sql.DB
	palaceID string
	logger   *slog.Logger
}

// Ensure PostgresPalaceStore implements store.PalaceStore interface
var _ store.PalaceStore = (*PostgresPalaceStore)(nil)

// NewPalaceStore creates a new PostgreSQL implementation of the PalaceStore
// interface for the palace identified by palaceID.
// If logger is nil, a default logger will be used.
func NewPalaceStore(db *sql.DB, palaceID string, logger *slog.Logger) *PostgresPalaceStore {
	if palaceID == "" {
		palaceID = domain.DefaultPalaceID
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPalaceStore{
		db:       db,
		palaceID: palaceID,
		logger:   logger.With(slog.String("component", "palace_store")),
	}
}

// PalaceID returns the identifier of the palace this store reads and writes.
func (s *PostgresPalaceStore) PalaceID() string {
	return s.palaceID
}

// LoadOrCreate implements store.PalaceStore.LoadOrCreate.
func (s *PostgresPalaceStore) LoadOrCreate(ctx context.Context) *domain.Palace {
	log := logger.FromContextOrDefault(ctx, s.logger)

	p, err := s.load(ctx, s.db)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("no stored palace found, starting a new palace",
				slog.String("palace_id", s.palaceID))
		} else {
			log.Warn("failed to load palace, starting a new palace",
				slog.String("palace_id", s.palaceID),
				slog.String("error", err.Error()))
		}
		return s.newPalace()
	}

	log.Info("loaded palace",
		slog.String("palace_id", p.ID),
		slog.Int("cards", len(p.Cards)))
	return p
}

func (s *PostgresPalaceStore) newPalace() *domain.Palace {
	p := domain.NewPalace()
	p.ID = s.palaceID
	return p
}

func (s *PostgresPalaceStore) load(ctx context.Context, q store.DBTX) (*domain.Palace, error) {
	query := `
		SELECT id, streak, last_session_at
		FROM palaces
		WHERE id = $1
	`

	var (
		p           domain.Palace
		lastSession sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, s.palaceID).Scan(&p.ID, &p.Streak, &lastSession)
	if err != nil {
		return nil, MapError(err)
	}
	if lastSession.Valid {
		p.LastSessionAt = lastSession.Time.UTC()
	}

	cards, err := s.loadCards(ctx, q)
	if err != nil {
		return nil, err
	}
	p.Cards = cards

	return &p, nil
}

func (s *PostgresPalaceStore) loadCards(ctx context.Context, q store.DBTX) ([]domain.Card, error) {
	query := `
		SELECT id, locus_id, front, back, image_path, due_at,
		       interval_days, ease, reps, lapses
		FROM palace_cards
		WHERE palace_id = $1
		ORDER BY position
	`

	rows, err := q.QueryContext(ctx, query, s.palaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	cards := []domain.Card{}
	for rows.Next() {
		var (
			c     domain.Card
			dueAt sql.NullTime
		)
		if err := rows.Scan(
			&c.ID,
			&c.LocusID,
			&c.Front,
			&c.Back,
			&c.ImagePath,
			&dueAt,
			&c.IntervalDays,
			&c.Ease,
			&c.Reps,
			&c.Lapses,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		if dueAt.Valid {
			c.DueAt = dueAt.Time.UTC()
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards: %w", err)
	}

	return cards, nil
}

// Save implements store.PalaceStore.Save.
//
// The palace row is upserted and its cards are replaced inside one
// transaction, so readers see either the previous palace or the new one.
// The palace is always stored under the store's palace ID.
func (s *PostgresPalaceStore) Save(ctx context.Context, p *domain.Palace) error {
	if p == nil {
		return store.NewStoreError("palace", "save", "palace cannot be nil", store.ErrInvalidEntity)
	}

	log := logger.FromContextOrDefault(ctx, s.logger)
	ctx = logger.WithLogger(ctx, log)

	err := store.RunInTransaction(ctx, s.db, "save_palace", func(ctx context.Context, tx *sql.Tx) error {
		if err := s.upsertPalace(ctx, tx, p); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM palace_cards WHERE palace_id = $1`, s.palaceID); err != nil {
			return fmt.Errorf("failed to clear cards: %w", MapError(err))
		}

		for i := range p.Cards {
			if err := s.insertCard(ctx, tx, i, &p.Cards[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to save palace",
			slog.String("palace_id", s.palaceID),
			slog.String("error", err.Error()))
		return store.NewStoreError("palace", "save", "failed to write palace",
			fmt.Errorf("%w: %w", store.ErrSaveFailed, err))
	}

	log.Debug("saved palace",
		slog.String("palace_id", s.palaceID),
		slog.Int("cards", len(p.Cards)))
	return nil
}

func (s *PostgresPalaceStore) upsertPalace(ctx context.Context, tx store.DBTX, p *domain.Palace) error {
	query := `
		INSERT INTO palaces (id, streak, last_session_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET streak = EXCLUDED.streak,
		    last_session_at = EXCLUDED.last_session_at,
		    updated_at = NOW()
	`

	if _, err := tx.ExecContext(ctx, query, s.palaceID, p.Streak, nullTime(p.LastSessionAt)); err != nil {
		return fmt.Errorf("failed to upsert palace: %w", MapError(err))
	}
	return nil
}

func (s *PostgresPalaceStore) insertCard(ctx context.Context, tx store.DBTX, position int, c *domain.Card) error {
	query := `
		INSERT INTO palace_cards (
			palace_id, id, position, locus_id, front, back, image_path,
			due_at, interval_days, ease, reps, lapses
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := tx.ExecContext(ctx, query,
		s.palaceID,
		c.ID,
		position,
		c.LocusID,
		c.Front,
		c.Back,
		c.ImagePath,
		nullTime(c.DueAt),
		c.IntervalDays,
		c.Ease,
		c.Reps,
		c.Lapses,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", c.ID, MapError(err))
	}
	return nil
}

// nullTime stores zero times as NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
