package palace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/mindpalace/internal/domain"
	"github.com/phrazzld/mindpalace/internal/domain/srs"
	"github.com/phrazzld/mindpalace/internal/events"
	"github.com/phrazzld/mindpalace/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var reviewTime = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

var testLoci = []domain.Locus{
	{ID: "door", Name: "Front door"},
	{ID: "hall", Name: "Hallway"},
	{ID: "stair", Name: "Staircase"},
}

// testClock is a settable clock for services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	svc     Service
	store   *memoryStore
	emitter *recordingEmitter
	clock   *testClock
}

func newFixture(t *testing.T, initial *domain.Palace, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:   &memoryStore{saved: initial},
		emitter: &recordingEmitter{},
		clock:   &testClock{now: reviewTime},
	}
	opts = append([]Option{WithClock(f.clock.Now), WithEventEmitter(f.emitter)}, opts...)

	svc, err := NewService(f.store, srs.NewDefaultService(), testLoci, nil, opts...)
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))
	f.svc = svc
	return f
}

func palaceWith(cards ...domain.Card) *domain.Palace {
	p := domain.NewPalace()
	p.Cards = append(p.Cards, cards...)
	return p
}

func card(id, locus string, due time.Time) domain.Card {
	return domain.Card{ID: id, LocusID: locus, Front: "Q " + id, Back: "A " + id, DueAt: due, Ease: 2.5}
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(nil, srs.NewDefaultService(), testLoci, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = NewService(&memoryStore{}, nil, testLoci, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds samples into an empty palace", func(t *testing.T) {
		f := newFixture(t, nil, WithSampleSeeding(true))

		saved := f.store.lastSaved()
		require.Len(t, saved.Cards, 2)
		assert.Equal(t, "door", saved.Cards[0].LocusID)
		assert.Equal(t, sampleFrontLoci, saved.Cards[0].Front)
		assert.Equal(t, "hall", saved.Cards[1].LocusID)
		assert.Equal(t, sampleBackCity, saved.Cards[1].Back)
		for _, c := range saved.Cards {
			assert.Equal(t, domain.DefaultEase, c.Ease)
			assert.Zero(t, c.IntervalDays)
			assert.True(t, reviewTime.Equal(c.DueAt))
		}
		assert.Equal(t, 2, f.svc.Stats(ctx).TotalCards)
	})

	t.Run("does not seed when disabled", func(t *testing.T) {
		f := newFixture(t, nil)
		assert.Zero(t, f.svc.Stats(ctx).TotalCards)
		assert.Zero(t, f.store.saves)
	})

	t.Run("does not seed a palace that has cards", func(t *testing.T) {
		f := newFixture(t, palaceWith(card("a", "stair", reviewTime)), WithSampleSeeding(true))
		assert.Equal(t, 1, f.svc.Stats(ctx).TotalCards)
		assert.Zero(t, f.store.saves)
	})

	t.Run("seed save failure keeps the loaded palace", func(t *testing.T) {
		st := &memoryStore{saveErr: errors.New("disk full")}
		svc, err := NewService(st, srs.NewDefaultService(), testLoci, nil, WithSampleSeeding(true))
		require.NoError(t, err)

		err = svc.Load(ctx)

		var svcErr *ServiceError
		require.True(t, errors.As(err, &svcErr))
		assert.Equal(t, "seed_samples", svcErr.Operation)
		assert.Zero(t, svc.Stats(ctx).TotalCards)
	})
}

func TestCardsForLocus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, palaceWith(
		card("late", "door", reviewTime.Add(48*time.Hour)),
		card("other", "hall", reviewTime),
		card("tie-1", "door", reviewTime),
		card("early", "door", reviewTime.Add(-time.Hour)),
		card("tie-2", "door", reviewTime),
	))

	cards, err := f.svc.CardsForLocus(ctx, "door")
	require.NoError(t, err)

	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"early", "tie-1", "tie-2", "late"}, ids)

	cards[0].Front = "changed"
	again, err := f.svc.GetCard(ctx, "early")
	require.NoError(t, err)
	assert.Equal(t, "Q early", again.Front)

	empty, err := f.svc.CardsForLocus(ctx, "nowhere")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = f.svc.CardsForLocus(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestOpenLocus(t *testing.T) {
	ctx := context.Background()

	t.Run("empty locus gets one blank card", func(t *testing.T) {
		f := newFixture(t, nil)

		cards, err := f.svc.OpenLocus(ctx, "stair")
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, "stair", cards[0].LocusID)
		assert.Empty(t, cards[0].Front)
		assert.Equal(t, 1, f.store.saves)

		again, err := f.svc.OpenLocus(ctx, "stair")
		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.Equal(t, cards[0].ID, again[0].ID)
		assert.Equal(t, 1, f.store.saves)
		assert.Equal(t, []string{events.CardCreated}, f.emitter.types())
	})

	t.Run("locus with cards is read without saving", func(t *testing.T) {
		f := newFixture(t, palaceWith(card("a", "door", reviewTime)))

		for i := 0; i < 3; i++ {
			cards, err := f.svc.OpenLocus(ctx, "door")
			require.NoError(t, err)
			require.Len(t, cards, 1)
		}
		assert.Zero(t, f.store.saves)
		assert.Empty(t, f.emitter.types())
	})

	t.Run("failing store does not affect a filled locus", func(t *testing.T) {
		f := newFixture(t, palaceWith(card("a", "door", reviewTime)))
		f.store.mu.Lock()
		f.store.saveErr = errors.New("disk full")
		f.store.mu.Unlock()

		cards, err := f.svc.OpenLocus(ctx, "door")
		require.NoError(t, err)
		assert.Len(t, cards, 1)

		_, err = f.svc.OpenLocus(ctx, "stair")
		var svcErr *ServiceError
		require.True(t, errors.As(err, &svcErr))
		assert.Equal(t, "open_locus", svcErr.Operation)
		assert.Equal(t, 1, f.svc.Stats(ctx).TotalCards)
	})
}

func TestCreateBlankCard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, palaceWith(card("a", "door", reviewTime)))

	created, err := f.svc.CreateBlankCard(ctx, "hall")
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "hall", created.LocusID)
	assert.Empty(t, created.Front)
	assert.Empty(t, created.Back)
	assert.Equal(t, 2.5, created.Ease)
	assert.Zero(t, created.IntervalDays)
	assert.True(t, reviewTime.Equal(created.DueAt))

	saved := f.store.lastSaved()
	require.Len(t, saved.Cards, 2)
	assert.Equal(t, created.ID, saved.Cards[1].ID, "new cards are appended")
	assert.Equal(t, []string{events.CardCreated}, f.emitter.types())

	_, err = f.svc.CreateBlankCard(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestGetCard_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.GetCard(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCardNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func strPtr(s string) *string { return &s }

func TestUpdateCard(t *testing.T) {
	ctx := context.Background()

	t.Run("edits text fields in place", func(t *testing.T) {
		f := newFixture(t, palaceWith(card("a", "door", reviewTime), card("b", "door", reviewTime)))

		updated, err := f.svc.UpdateCard(ctx, "b", CardEdit{Front: strPtr("new front"), Back: strPtr("new back")})
		require.NoError(t, err)
		assert.Equal(t, "new front", updated.Front)
		assert.Equal(t, "new back", updated.Back)

		saved := f.store.lastSaved()
		assert.Equal(t, "b", saved.Cards[1].ID, "position is preserved")
		assert.Equal(t, "new back", saved.Cards[1].Back)
		assert.Equal(t, []string{events.CardUpdated}, f.emitter.types())
	})

	t.Run("nil fields are kept", func(t *testing.T) {
		f := newFixture(t, palaceWith(card("a", "door", reviewTime)))

		updated, err := f.svc.UpdateCard(ctx, "a", CardEdit{ImagePath: strPtr("img/door.png")})
		require.NoError(t, err)
		assert.Equal(t, "Q a", updated.Front)
		assert.Equal(t, "A a", updated.Back)
		assert.Equal(t, "img/door.png", updated.ImagePath)
	})

	t.Run("empty edit does not save", func(t *testing.T) {
		f := newFixture(t, palaceWith(card("a", "door", reviewTime)))

		updated, err := f.svc.UpdateCard(ctx, "a", CardEdit{})
		require.NoError(t, err)
		assert.Equal(t, "Q a", updated.Front)
		assert.Zero(t, f.store.saves)
		assert.Empty(t, f.emitter.types())
	})

	t.Run("review between read and edit is kept", func(t *testing.T) {
		reviewed := card("a", "door", reviewTime)
		reviewed.Reps = 3
		reviewed.IntervalDays = 15
		f := newFixture(t, palaceWith(reviewed))

		before, err := f.svc.GetCard(ctx, "a")
		require.NoError(t, err)

		graded, err := f.svc.GradeCard(ctx, "a", domain.GradeAgain)
		require.NoError(t, err)
		require.Equal(t, 1, graded.Lapses)

		updated, err := f.svc.UpdateCard(ctx, before.ID, CardEdit{Front: strPtr(before.Front + " (edited)")})
		require.NoError(t, err)

		assert.Equal(t, "Q a (edited)", updated.Front)
		assert.Equal(t, 1, updated.Lapses)
		assert.Equal(t, 0, updated.Reps)
		assert.Equal(t, 1, updated.IntervalDays)
		assert.Equal(t, graded.Ease, updated.Ease)
		assert.True(t, graded.DueAt.Equal(updated.DueAt))

		saved := f.store.lastSaved()
		assert.Equal(t, 1, saved.Cards[0].Lapses)
		assert.Equal(t, "Q a (edited)", saved.Cards[0].Front)
	})

	t.Run("missing card", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.UpdateCard(ctx, "ghost", CardEdit{Front: strPtr("x")})
		assert.ErrorIs(t, err, ErrCardNotFound)
		assert.Zero(t, f.store.saves)

		_, err = f.svc.UpdateCard(ctx, "ghost", CardEdit{})
		assert.ErrorIs(t, err, ErrCardNotFound)
	})

	t.Run("save failure keeps previous text", func(t *testing.T) {
		f := newFixture(t, palaceWith(card("a", "door", reviewTime)))
		f.store.mu.Lock()
		f.store.saveErr = errors.New("disk full")
		f.store.mu.Unlock()

		_, err := f.svc.UpdateCard(ctx, "a", CardEdit{Front: strPtr("lost")})
		var svcErr *ServiceError
		require.True(t, errors.As(err, &svcErr))
		assert.Equal(t, "update_card", svcErr.Operation)

		c, err := f.svc.GetCard(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "Q a", c.Front)
	})
}

func TestDeleteCard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, palaceWith(
		card("a", "door", reviewTime),
		card("b", "door", reviewTime),
		card("c", "door", reviewTime),
	))

	require.NoError(t, f.svc.DeleteCard(ctx, "b"))

	saved := f.store.lastSaved()
	require.Len(t, saved.Cards, 2)
	assert.Equal(t, "a", saved.Cards[0].ID)
	assert.Equal(t, "c", saved.Cards[1].ID)

	assert.ErrorIs(t, f.svc.DeleteCard(ctx, "b"), ErrCardNotFound)
	assert.Equal(t, []string{events.CardDeleted}, f.emitter.types())
}

func TestGradeCard(t *testing.T) {
	ctx := context.Background()

	t.Run("new card graded good", func(t *testing.T) {
		fresh := domain.Card{ID: "new", LocusID: "door"}
		f := newFixture(t, palaceWith(fresh))

		graded, err := f.svc.GradeCard(ctx, "new", domain.GradeGood)
		require.NoError(t, err)

		assert.InDelta(t, 2.6, graded.Ease, 1e-9)
		assert.Equal(t, 1, graded.Reps)
		assert.Equal(t, 1, graded.IntervalDays)
		assert.True(t, reviewTime.AddDate(0, 0, 1).Equal(graded.DueAt))

		stats := f.svc.Stats(ctx)
		assert.Equal(t, 1, stats.Streak)
		assert.True(t, reviewTime.Equal(stats.LastSessionAt))

		saved := f.store.lastSaved()
		assert.Equal(t, 1, saved.Cards[0].Reps)
		assert.Equal(t, 1, saved.Streak)

		require.Len(t, f.emitter.events, 1)
		var payload events.CardPayload
		require.NoError(t, f.emitter.events[0].UnmarshalPayload(&payload))
		assert.Equal(t, "good", payload.Grade)
		assert.Equal(t, "new", payload.CardID)
	})

	t.Run("invalid grade is rejected", func(t *testing.T) {
		f := newFixture(t, palaceWith(card("a", "door", reviewTime)))

		_, err := f.svc.GradeCard(ctx, "a", domain.Grade(1))
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Zero(t, f.store.saves)
		assert.Empty(t, f.emitter.types())
	})

	t.Run("missing card", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.GradeCard(ctx, "missing", domain.GradeEasy)
		assert.ErrorIs(t, err, ErrCardNotFound)
	})

	t.Run("streak follows review days", func(t *testing.T) {
		f := newFixture(t, palaceWith(card("a", "door", reviewTime)))

		grade := func(at time.Time) int {
			f.clock.Set(at)
			_, err := f.svc.GradeCard(ctx, "a", domain.GradeAgain)
			require.NoError(t, err)
			return f.svc.Stats(ctx).Streak
		}

		assert.Equal(t, 1, grade(reviewTime))
		assert.Equal(t, 1, grade(reviewTime.Add(3*time.Hour)))
		assert.Equal(t, 2, grade(reviewTime.AddDate(0, 0, 1)))
		assert.Equal(t, 3, grade(reviewTime.AddDate(0, 0, 2).Add(-11*time.Hour)))
		assert.Equal(t, 1, grade(reviewTime.AddDate(0, 0, 5)))
	})
}

func TestGradeCard_SaveFailureRestoresState(t *testing.T) {
	ctx := context.Background()
	original := card("a", "door", reviewTime)
	original.Reps = 2
	original.IntervalDays = 6

	st := new(MockPalaceStore)
	st.On("LoadOrCreate", mock.Anything).Return(palaceWith(original)).Once()
	saveErr := fmt.Errorf("%w: disk full", store.ErrSaveFailed)
	st.On("Save", mock.Anything, mock.Anything).Return(saveErr).Once()

	emitter := &recordingEmitter{}
	svc, err := NewService(st, srs.NewDefaultService(), testLoci, nil,
		WithClock(func() time.Time { return reviewTime }),
		WithEventEmitter(emitter))
	require.NoError(t, err)
	require.NoError(t, svc.Load(ctx))

	_, err = svc.GradeCard(ctx, "a", domain.GradeEasy)

	require.Error(t, err)
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "grade_card", svcErr.Operation)
	assert.ErrorIs(t, err, store.ErrSaveFailed)

	current, err := svc.GetCard(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, current.Reps)
	assert.Equal(t, 6, current.IntervalDays)
	assert.Zero(t, svc.Stats(ctx).Streak)
	assert.Empty(t, emitter.types())
	st.AssertExpectations(t)
}

func TestPostponeCard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, palaceWith(
		card("overdue", "door", reviewTime.Add(-72*time.Hour)),
		card("future", "door", reviewTime.AddDate(0, 0, 3)),
	))

	p, err := f.svc.PostponeCard(ctx, "overdue", 2)
	require.NoError(t, err)
	assert.True(t, reviewTime.AddDate(0, 0, 2).Equal(p.DueAt))

	p, err = f.svc.PostponeCard(ctx, "future", 1)
	require.NoError(t, err)
	assert.True(t, reviewTime.AddDate(0, 0, 4).Equal(p.DueAt))

	_, err = f.svc.PostponeCard(ctx, "future", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.svc.PostponeCard(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrCardNotFound)

	assert.Equal(t, []string{events.CardPostponed, events.CardPostponed}, f.emitter.types())
}

func TestNextDueCard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, palaceWith(
		card("later", "door", reviewTime.Add(-time.Hour)),
		card("earliest", "hall", reviewTime.Add(-48*time.Hour)),
		card("future", "door", reviewTime.Add(time.Hour)),
		card("exact", "stair", reviewTime),
	))

	next, err := f.svc.NextDueCard(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "earliest", next.ID)

	next, err = f.svc.NextDueCard(ctx, "door")
	require.NoError(t, err)
	assert.Equal(t, "later", next.ID)

	next, err = f.svc.NextDueCard(ctx, "stair")
	require.NoError(t, err)
	assert.Equal(t, "exact", next.ID, "a card due exactly now is due")

	_, err = f.svc.NextDueCard(ctx, "nowhere")
	assert.ErrorIs(t, err, ErrNoCardsDue)
}

func TestStatsAndLoci(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, palaceWith(
		card("a", "door", reviewTime.Add(-time.Hour)),
		card("b", "door", reviewTime.Add(time.Hour)),
		card("c", "zeta", reviewTime),
		card("d", "attic", reviewTime.Add(time.Hour)),
	))

	stats := f.svc.Stats(ctx)
	assert.Equal(t, 4, stats.TotalCards)
	assert.Equal(t, 2, stats.DueCards)
	assert.Equal(t, 5, stats.TotalLoci)
	assert.Zero(t, stats.Streak)
	assert.True(t, stats.LastSessionAt.IsZero())

	loci := f.svc.Loci(ctx)
	require.Len(t, loci, 5)
	assert.Equal(t, "door", loci[0].Locus.ID)
	assert.Equal(t, "Front door", loci[0].Locus.Name)
	assert.Equal(t, 2, loci[0].CardCount)
	assert.Equal(t, 1, loci[0].DueCount)
	assert.Equal(t, "hall", loci[1].Locus.ID)
	assert.Zero(t, loci[1].CardCount)
	assert.Equal(t, "stair", loci[2].Locus.ID)
	assert.Equal(t, "attic", loci[3].Locus.ID)
	assert.Equal(t, "zeta", loci[4].Locus.ID)
	assert.Equal(t, 1, loci[4].DueCount)
}

func TestEmitterFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, nil)
	f.emitter.err = errors.New("handler exploded")

	created, err := f.svc.CreateBlankCard(context.Background(), "door")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, f.store.saves)
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, palaceWith(card("a", "door", reviewTime)))

	require.NoError(t, f.svc.Save(ctx))
	assert.Equal(t, 1, f.store.saves)

	f.store.saveErr = errors.New("read-only file system")
	err := f.svc.Save(ctx)
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "save", svcErr.Operation)
}

func TestConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, palaceWith(card("shared", "door", reviewTime)))

	const workers = 4
	const perWorker = 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if i%2 == 0 {
					_, err := f.svc.CreateBlankCard(ctx, testLoci[w%len(testLoci)].ID)
					assert.NoError(t, err)
				} else {
					_, err := f.svc.GradeCard(ctx, "shared", domain.GradeGood)
					assert.NoError(t, err)
				}
			}
		}(w)
	}
	wg.Wait()

	stats := f.svc.Stats(ctx)
	assert.Equal(t, 1+workers*perWorker/2, stats.TotalCards)

	shared, err := f.svc.GetCard(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker/2, shared.Reps)
	assert.Equal(t, workers*perWorker, f.store.saves)
}
