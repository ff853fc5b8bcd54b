package palace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/mindpalace/internal/domain"
	"github.com/phrazzld/mindpalace/internal/domain/srs"
	"github.com/phrazzld/mindpalace/internal/events"
	"github.com/phrazzld/mindpalace/internal/platform/logger"
	"github.com/phrazzld/mindpalace/internal/store"
)

// Sample cards created by Load when seeding is enabled.
const (
	sampleFrontLoci = "What is the Method of Loci?"
	sampleBackLoci  = "A memory technique that uses spatial visualization to organize and recall information."
	sampleFrontCity = "Capital of France?"
	sampleBackCity  = "Paris"
)

// errLocusFilled stops an OpenLocus mutation when the locus gained cards
// between the read and the write lock.
var errLocusFilled = errors.New("locus already has cards")

// Verify interface compliance at compile time
var _ Service = (*palaceServiceImpl)(nil)

// Option configures a Service.
type Option func(*palaceServiceImpl)

// WithClock replaces time.Now as the source of the current time.
func WithClock(clock func() time.Time) Option {
	return func(s *palaceServiceImpl) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSampleSeeding enables creating starter cards when an empty palace is loaded.
func WithSampleSeeding(enabled bool) Option {
	return func(s *palaceServiceImpl) {
		s.seedSamples = enabled
	}
}

// WithEventEmitter sets the emitter that receives card events.
func WithEventEmitter(emitter events.EventEmitter) Option {
	return func(s *palaceServiceImpl) {
		if emitter != nil {
			s.emitter = emitter
		}
	}
}

// palaceServiceImpl implements the Service interface.
type palaceServiceImpl struct {
	mu     sync.Mutex
	palace *domain.Palace

	store       store.PalaceStore
	srsService  srs.Service
	emitter     events.EventEmitter
	loci        []domain.Locus
	seedSamples bool
	clock       func() time.Time
	logger      *slog.Logger
}

// NewService creates a new palace Service.
// It returns an error if any of the required dependencies are nil.
func NewService(
	palaceStore store.PalaceStore,
	srsService srs.Service,
	loci []domain.Locus,
	logger *slog.Logger,
	opts ...Option,
) (Service, error) {
	if palaceStore == nil {
		return nil, fmt.Errorf("%w: palace store cannot be nil", domain.ErrInvalidArgument)
	}
	if srsService == nil {
		return nil, fmt.Errorf("%w: srs service cannot be nil", domain.ErrInvalidArgument)
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &palaceServiceImpl{
		store:      palaceStore,
		srsService: srsService,
		emitter:    events.NoopEmitter{},
		loci:       slices.Clone(loci),
		clock:      time.Now,
		logger:     logger.With(slog.String("component", "palace_service")),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *palaceServiceImpl) now() time.Time {
	return s.clock().UTC()
}

// ensureLoaded loads the palace on first use. Callers must hold s.mu.
func (s *palaceServiceImpl) ensureLoaded(ctx context.Context) {
	if s.palace == nil {
		s.palace = s.store.LoadOrCreate(ctx)
	}
}

// mutate runs fn against the in-memory palace and saves the result. If fn or
// the save fails, the palace is restored to its state before fn ran.
func (s *palaceServiceImpl) mutate(
	ctx context.Context,
	operation string,
	fn func(p *domain.Palace, now time.Time) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	previous := s.palace.Clone()

	if err := fn(s.palace, s.now()); err != nil {
		s.palace = previous
		return err
	}

	if err := s.store.Save(ctx, s.palace); err != nil {
		s.palace = previous
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save palace",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return NewServiceError(operation, "failed to save palace", err)
	}

	return nil
}

// read runs fn against the in-memory palace under the service lock.
func (s *palaceServiceImpl) read(ctx context.Context, fn func(p *domain.Palace, now time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	fn(s.palace, s.now())
}

// emit publishes a card event. Failures are logged and never returned.
func (s *palaceServiceImpl) emit(ctx context.Context, eventType string, payload events.CardPayload) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		log.Error("failed to create event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("failed to emit event",
			slog.String("event_type", eventType),
			slog.String("card_id", payload.CardID),
			slog.String("error", err.Error()))
	}
}

// Load implements Service.Load.
func (s *palaceServiceImpl) Load(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	s.palace = s.store.LoadOrCreate(ctx)
	needsSeed := s.seedSamples && len(s.palace.Cards) == 0 && len(s.loci) > 0
	s.mu.Unlock()

	if needsSeed {
		err := s.mutate(ctx, "seed_samples", func(p *domain.Palace, now time.Time) error {
			return s.seed(p, now)
		})
		if err != nil {
			return err
		}
		log.Info("seeded sample cards", slog.Int("cards", len(s.snapshot().Cards)))
	}

	stats := s.Stats(ctx)
	log.Info("palace loaded",
		slog.Int("cards", stats.TotalCards),
		slog.Int("loci", stats.TotalLoci),
		slog.Int("due", stats.DueCards))
	return nil
}

func (s *palaceServiceImpl) seed(p *domain.Palace, now time.Time) error {
	samples := []struct{ front, back string }{
		{sampleFrontLoci, sampleBackLoci},
		{sampleFrontCity, sampleBackCity},
	}

	for i, sample := range samples {
		if i >= len(s.loci) {
			break
		}
		card, err := domain.NewBlankCard(s.loci[i].ID, now)
		if err != nil {
			return err
		}
		card.Front = sample.front
		card.Back = sample.back
		p.Cards = append(p.Cards, *card)
	}
	return nil
}

func (s *palaceServiceImpl) snapshot() *domain.Palace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.palace.Clone()
}

// Save implements Service.Save.
func (s *palaceServiceImpl) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	if err := s.store.Save(ctx, s.palace); err != nil {
		return NewServiceError("save", "failed to save palace", err)
	}
	return nil
}

// Loci implements Service.Loci.
func (s *palaceServiceImpl) Loci(ctx context.Context) []LocusSummary {
	var summaries []LocusSummary

	s.read(ctx, func(p *domain.Palace, now time.Time) {
		index := make(map[string]int, len(s.loci))
		summaries = make([]LocusSummary, 0, len(s.loci))
		for _, l := range s.loci {
			if _, ok := index[l.ID]; ok {
				continue
			}
			index[l.ID] = len(summaries)
			summaries = append(summaries, LocusSummary{Locus: l})
		}

		var extra []string
		for i := range p.Cards {
			c := &p.Cards[i]
			pos, ok := index[c.LocusID]
			if !ok {
				pos = len(summaries)
				index[c.LocusID] = pos
				summaries = append(summaries, LocusSummary{Locus: domain.Locus{ID: c.LocusID, Name: c.LocusID}})
				extra = append(extra, c.LocusID)
			}
			summaries[pos].CardCount++
			if c.IsDue(now) {
				summaries[pos].DueCount++
			}
		}

		if len(extra) > 1 {
			tail := summaries[len(summaries)-len(extra):]
			sort.SliceStable(tail, func(i, j int) bool { return tail[i].Locus.ID < tail[j].Locus.ID })
		}
	})

	return summaries
}

// CardsForLocus implements Service.CardsForLocus.
func (s *palaceServiceImpl) CardsForLocus(ctx context.Context, locusID string) ([]domain.Card, error) {
	if locusID == "" {
		return nil, ErrLocusIDEmpty
	}

	var cards []domain.Card
	s.read(ctx, func(p *domain.Palace, _ time.Time) {
		cards = cardsForLocus(p, locusID)
	})
	return cards, nil
}

func cardsForLocus(p *domain.Palace, locusID string) []domain.Card {
	cards := make([]domain.Card, 0)
	for i := range p.Cards {
		if p.Cards[i].LocusID == locusID {
			cards = append(cards, p.Cards[i])
		}
	}
	slices.SortStableFunc(cards, func(a, b domain.Card) int {
		return a.DueAt.Compare(b.DueAt)
	})
	return cards
}

// OpenLocus implements Service.OpenLocus.
func (s *palaceServiceImpl) OpenLocus(ctx context.Context, locusID string) ([]domain.Card, error) {
	if locusID == "" {
		return nil, ErrLocusIDEmpty
	}

	var cards []domain.Card
	s.read(ctx, func(p *domain.Palace, _ time.Time) {
		cards = cardsForLocus(p, locusID)
	})
	if len(cards) > 0 {
		return cards, nil
	}

	var created *domain.Card
	err := s.mutate(ctx, "open_locus", func(p *domain.Palace, now time.Time) error {
		// Another caller may have filled the locus since the read above.
		cards = cardsForLocus(p, locusID)
		if len(cards) > 0 {
			return errLocusFilled
		}

		card, err := domain.NewBlankCard(locusID, now)
		if err != nil {
			return err
		}
		p.Cards = append(p.Cards, *card)
		created = card
		cards = []domain.Card{*card}
		return nil
	})
	if errors.Is(err, errLocusFilled) {
		return cards, nil
	}
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.CardCreated, cardPayload(created))
	return cards, nil
}

// CreateBlankCard implements Service.CreateBlankCard.
func (s *palaceServiceImpl) CreateBlankCard(ctx context.Context, locusID string) (*domain.Card, error) {
	if locusID == "" {
		return nil, ErrLocusIDEmpty
	}

	var created *domain.Card
	err := s.mutate(ctx, "create_card", func(p *domain.Palace, now time.Time) error {
		card, err := domain.NewBlankCard(locusID, now)
		if err != nil {
			return err
		}
		p.Cards = append(p.Cards, *card)
		created = card
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("created card",
		slog.String("card_id", created.ID),
		slog.String("locus_id", locusID))
	s.emit(ctx, events.CardCreated, cardPayload(created))
	return created.Clone(), nil
}

// GetCard implements Service.GetCard.
func (s *palaceServiceImpl) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	var (
		card *domain.Card
		err  error
	)
	s.read(ctx, func(p *domain.Palace, _ time.Time) {
		idx := p.IndexOf(id)
		if idx < 0 {
			err = ErrCardNotFound
			return
		}
		card = p.Cards[idx].Clone()
	})
	return card, err
}

// UpdateCard implements Service.UpdateCard.
func (s *palaceServiceImpl) UpdateCard(ctx context.Context, id string, edit CardEdit) (*domain.Card, error) {
	if edit.IsEmpty() {
		return s.GetCard(ctx, id)
	}

	var updated *domain.Card
	err := s.mutate(ctx, "update_card", func(p *domain.Palace, _ time.Time) error {
		idx := p.IndexOf(id)
		if idx < 0 {
			return ErrCardNotFound
		}
		edit.applyTo(&p.Cards[idx])
		updated = p.Cards[idx].Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.CardUpdated, cardPayload(updated))
	return updated, nil
}

// DeleteCard implements Service.DeleteCard.
func (s *palaceServiceImpl) DeleteCard(ctx context.Context, id string) error {
	var deleted domain.Card
	err := s.mutate(ctx, "delete_card", func(p *domain.Palace, _ time.Time) error {
		idx := p.IndexOf(id)
		if idx < 0 {
			return ErrCardNotFound
		}
		deleted = p.Cards[idx]
		p.Cards = slices.Delete(p.Cards, idx, idx+1)
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, events.CardDeleted, cardPayload(&deleted))
	return nil
}

// GradeCard implements Service.GradeCard.
func (s *palaceServiceImpl) GradeCard(
	ctx context.Context,
	id string,
	grade domain.Grade,
) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var graded *domain.Card
	err := s.mutate(ctx, "grade_card", func(p *domain.Palace, now time.Time) error {
		idx := p.IndexOf(id)
		if idx < 0 {
			return ErrCardNotFound
		}

		next, err := s.srsService.CalculateNextReview(&p.Cards[idx], grade, now)
		if err != nil {
			return err
		}
		p.Cards[idx] = *next
		p.RecordSession(now)
		graded = next
		return nil
	})
	if err != nil {
		log.Debug("failed to grade card",
			slog.String("card_id", id),
			slog.String("grade", grade.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("graded card",
		slog.String("card_id", graded.ID),
		slog.String("grade", grade.String()),
		slog.Int("interval_days", graded.IntervalDays),
		slog.Time("due_at", graded.DueAt))

	payload := cardPayload(graded)
	payload.Grade = grade.String()
	s.emit(ctx, events.CardGraded, payload)
	return graded.Clone(), nil
}

// PostponeCard implements Service.PostponeCard.
func (s *palaceServiceImpl) PostponeCard(ctx context.Context, id string, days int) (*domain.Card, error) {
	var postponed *domain.Card
	err := s.mutate(ctx, "postpone_card", func(p *domain.Palace, now time.Time) error {
		idx := p.IndexOf(id)
		if idx < 0 {
			return ErrCardNotFound
		}

		next, err := s.srsService.PostponeReview(&p.Cards[idx], days, now)
		if err != nil {
			return err
		}
		p.Cards[idx] = *next
		postponed = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.CardPostponed, cardPayload(postponed))
	return postponed.Clone(), nil
}

// NextDueCard implements Service.NextDueCard.
func (s *palaceServiceImpl) NextDueCard(ctx context.Context, locusID string) (*domain.Card, error) {
	var next *domain.Card
	s.read(ctx, func(p *domain.Palace, now time.Time) {
		for i := range p.Cards {
			c := &p.Cards[i]
			if locusID != "" && c.LocusID != locusID {
				continue
			}
			if !c.IsDue(now) {
				continue
			}
			if next == nil || c.DueAt.Before(next.DueAt) {
				next = c.Clone()
			}
		}
	})

	if next == nil {
		return nil, ErrNoCardsDue
	}
	return next, nil
}

// Stats implements Service.Stats.
func (s *palaceServiceImpl) Stats(ctx context.Context) Stats {
	var stats Stats
	s.read(ctx, func(p *domain.Palace, now time.Time) {
		loci := make(map[string]struct{}, len(s.loci))
		for _, l := range s.loci {
			loci[l.ID] = struct{}{}
		}
		for i := range p.Cards {
			loci[p.Cards[i].LocusID] = struct{}{}
		}

		stats = Stats{
			TotalCards:    len(p.Cards),
			DueCards:      p.CountDue(now),
			TotalLoci:     len(loci),
			Streak:        p.Streak,
			LastSessionAt: p.LastSessionAt,
		}
	})
	return stats
}

func cardPayload(c *domain.Card) events.CardPayload {
	return events.CardPayload{
		CardID:  c.ID,
		LocusID: c.LocusID,
		DueAt:   c.DueAt,
	}
}
