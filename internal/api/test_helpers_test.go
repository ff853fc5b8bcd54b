package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/mindpalace/internal/domain"
	"github.com/phrazzld/mindpalace/internal/domain/srs"
	"github.com/phrazzld/mindpalace/internal/platform/logger"
	"github.com/phrazzld/mindpalace/internal/service/auth"
	"github.com/phrazzld/mindpalace/internal/service/palace"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

var testLoci = []domain.Locus{
	{ID: "door", Name: "Front door"},
	{ID: "hall", Name: "Hallway"},
}

// memoryStore keeps the saved palace in memory.
type memoryStore struct {
	mu      sync.Mutex
	saved   *domain.Palace
	saveErr error

	// lastDeadline is the deadline of the most recent Save context.
	lastDeadline time.Time
}

func (s *memoryStore) LoadOrCreate(context.Context) *domain.Palace {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		return domain.NewPalace()
	}
	return s.saved.Clone()
}

func (s *memoryStore) Save(ctx context.Context, p *domain.Palace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDeadline, _ = ctx.Deadline()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = p.Clone()
	return nil
}

func (s *memoryStore) failSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

type testServer struct {
	handler http.Handler
	service palace.Service
	store   *memoryStore
}

func newTestServer(t *testing.T, initial *domain.Palace, jwtService auth.JWTService) *testServer {
	t.Helper()

	log, _ := logger.NewTestLogger(t)
	st := &memoryStore{saved: initial}
	svc, err := palace.NewService(st, srs.NewDefaultService(), testLoci, log,
		palace.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))

	return &testServer{
		handler: NewRouter(RouterConfig{
			PalaceService: svc,
			JWTService:    jwtService,
			Logger:        log,
		}),
		service: svc,
		store:   st,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// samplePalace returns a palace with one due card on "door" and one future
// card on "hall".
func samplePalace() *domain.Palace {
	p := domain.NewPalace()
	p.Cards = []domain.Card{
		{
			ID: "card-due", LocusID: "door", Front: "Capital of France?", Back: "Paris",
			DueAt: testNow.Add(-time.Hour), Ease: 2.5,
		},
		{
			ID: "card-later", LocusID: "hall", Front: "2+2", Back: "4",
			DueAt: testNow.AddDate(0, 0, 3), IntervalDays: 3, Ease: 2.5, Reps: 2,
		},
	}
	return p
}
