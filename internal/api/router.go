package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/mindpalace/internal/api/middleware"
	"github.com/phrazzld/mindpalace/internal/service/auth"
	"github.com/phrazzld/mindpalace/internal/service/palace"
)

// RouterConfig holds the dependencies of the HTTP router.
type RouterConfig struct {
	PalaceService palace.Service

	// JWTService protects the /api routes; nil leaves them open.
	JWTService auth.JWTService

	Logger *slog.Logger

	// RequestTimeout bounds each request; zero disables the timeout.
	RequestTimeout time.Duration
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(log))
	r.Use(chimiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	cardHandler := NewCardHandler(cfg.PalaceService, log)
	locusHandler := NewLocusHandler(cfg.PalaceService, log)

	r.Route("/api", func(r chi.Router) {
		if cfg.JWTService != nil {
			r.Use(apiMiddleware.NewAuthMiddleware(cfg.JWTService).Authenticate)
		}

		r.Get("/loci", locusHandler.ListLoci)
		r.Get("/loci/{locusId}/cards", locusHandler.ListCards)
		r.Post("/loci/{locusId}/cards", locusHandler.CreateCard)
		r.Post("/loci/{locusId}/open", locusHandler.OpenLocus)

		r.Get("/cards/next", cardHandler.GetNextReviewCard)
		r.Get("/cards/{id}", cardHandler.GetCard)
		r.Put("/cards/{id}", cardHandler.EditCard)
		r.Delete("/cards/{id}", cardHandler.DeleteCard)
		r.Post("/cards/{id}/answer", cardHandler.SubmitAnswer)
		r.Post("/cards/{id}/postpone", cardHandler.PostponeCard)

		r.Get("/stats", locusHandler.GetStats)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
