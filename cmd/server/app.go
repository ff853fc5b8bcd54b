package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/mindpalace/internal/api"
	"github.com/phrazzld/mindpalace/internal/config"
	"github.com/phrazzld/mindpalace/internal/domain/srs"
	"github.com/phrazzld/mindpalace/internal/events"
	"github.com/phrazzld/mindpalace/internal/service/auth"
	"github.com/phrazzld/mindpalace/internal/service/palace"
	"github.com/phrazzld/mindpalace/internal/store"
)

// application holds the shared application dependencies so they can be
// cleaned up together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil unless the postgres driver is configured.
	db *sql.DB

	palaceStore   store.PalaceStore
	srsService    srs.Service
	palaceService palace.Service
	jwtService    auth.JWTService
	eventEmitter  *events.CardDispatcher
}

// newApplication wires the application and loads the palace.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.palaceStore, app.db, err = setupPalaceStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret != "" {
		app.jwtService, err = auth.NewJWTService(cfg.Auth)
		if err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
		}
		logger.Info("JWT authentication enabled",
			slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))
	} else {
		logger.Warn("JWT secret not configured, API authentication disabled")
	}

	app.eventEmitter = events.NewCardDispatcher(logger)
	app.eventEmitter.RegisterHandler(events.NewLoggingHandler(logger))

	app.srsService = srs.NewServiceWithParams(srs.NewParams(cfg.SRS))

	app.palaceService, err = palace.NewService(
		app.palaceStore,
		app.srsService,
		cfg.Palace.Loci,
		logger,
		palace.WithSampleSeeding(cfg.Palace.SeedSamples),
		palace.WithEventEmitter(app.eventEmitter),
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create palace service: %w", err)
	}

	if err := app.palaceService.Load(ctx); err != nil {
		// The palace is usable even if the seeded cards could not be saved.
		logger.Error("failed to save seeded palace", slog.String("error", err.Error()))
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// Run serves the API until ctx is canceled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.router()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (app *application) router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		PalaceService:  app.palaceService,
		JWTService:     app.jwtService,
		Logger:         app.logger,
		RequestTimeout: time.Duration(app.config.Server.RequestTimeoutSeconds) * time.Second,
	})
}

// cleanup saves the palace and releases application resources.
func (app *application) cleanup() {
	if app.palaceService != nil {
		if err := app.palaceService.Save(context.Background()); err != nil {
			app.logger.Error("failed to save palace on shutdown", slog.String("error", err.Error()))
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
