//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/mindpalace/internal/domain"
	"github.com/phrazzld/mindpalace/internal/platform/postgres"
	"github.com/phrazzld/mindpalace/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPalaceStore_RoundTrip(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	palaceID := testdb.UniquePalaceID(t, db)
	ctx := context.Background()

	s := postgres.NewPalaceStore(db, palaceID, nil)

	fresh := s.LoadOrCreate(ctx)
	assert.Equal(t, palaceID, fresh.ID)
	assert.Empty(t, fresh.Cards)

	due := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	p := &domain.Palace{
		ID:            palaceID,
		Streak:        3,
		LastSessionAt: due.Add(-time.Hour),
		Cards: []domain.Card{
			{ID: "z", LocusID: "door", Front: "Q", Back: "A", DueAt: due, IntervalDays: 6, Ease: 2.6, Reps: 2},
			{ID: "a", LocusID: "hall", Ease: 2.5},
		},
	}
	require.NoError(t, s.Save(ctx, p))

	loaded := s.LoadOrCreate(ctx)
	assert.Equal(t, 3, loaded.Streak)
	assert.True(t, p.LastSessionAt.Equal(loaded.LastSessionAt))
	require.Len(t, loaded.Cards, 2)
	assert.Equal(t, "z", loaded.Cards[0].ID)
	assert.True(t, due.Equal(loaded.Cards[0].DueAt))
	assert.Equal(t, "a", loaded.Cards[1].ID)
	assert.True(t, loaded.Cards[1].DueAt.IsZero())

	p.Cards = p.Cards[:1]
	require.NoError(t, s.Save(ctx, p))
	assert.Len(t, s.LoadOrCreate(ctx).Cards, 1)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	ctx, cancel := context.WithTimeout(context.Background(), testdb.TestTimeout)
	defer cancel()
	assert.NoError(t, postgres.Migrate(ctx, db, nil))
}

func TestPalaceStore_DuplicateCardIDsRejected(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	palaceID := testdb.UniquePalaceID(t, db)
	ctx := context.Background()

	s := postgres.NewPalaceStore(db, palaceID, nil)
	require.NoError(t, s.Save(ctx, &domain.Palace{Cards: []domain.Card{{ID: "x", LocusID: "door", Ease: 2.5}}}))

	err := s.Save(ctx, &domain.Palace{Cards: []domain.Card{
		{ID: "dup", LocusID: "door", Ease: 2.5},
		{ID: "dup", LocusID: "hall", Ease: 2.5},
	}})
	require.Error(t, err)

	loaded := s.LoadOrCreate(ctx)
	require.Len(t, loaded.Cards, 1)
	assert.Equal(t, "x", loaded.Cards[0].ID)
}
