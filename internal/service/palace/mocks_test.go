package palace

import (
	"context"
	"sync"

	"github.com/phrazzld/mindpalace/internal/domain"
	"github.com/phrazzld/mindpalace/internal/events"
	"github.com/stretchr/testify/mock"
)

// MockPalaceStore mocks the store.PalaceStore interface
type MockPalaceStore struct {
	mock.Mock
}

func (m *MockPalaceStore) LoadOrCreate(ctx context.Context) *domain.Palace {
	args := m.Called(ctx)
	return args.Get(0).(*domain.Palace)
}

func (m *MockPalaceStore) Save(ctx context.Context, p *domain.Palace) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// memoryStore is a PalaceStore that keeps the last saved palace in memory.
type memoryStore struct {
	mu      sync.Mutex
	saved   *domain.Palace
	saves   int
	saveErr error
}

func (s *memoryStore) LoadOrCreate(context.Context) *domain.Palace {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		return domain.NewPalace()
	}
	return s.saved.Clone()
}

func (s *memoryStore) Save(_ context.Context, p *domain.Palace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = p.Clone()
	s.saves++
	return nil
}

func (s *memoryStore) lastSaved() *domain.Palace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved.Clone()
}

// recordingEmitter records emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

func (e *recordingEmitter) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		types = append(types, ev.Type)
	}
	return types
}
