package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/mindpalace/internal/config"
	"github.com/phrazzld/mindpalace/internal/platform/jsonfile"
	"github.com/phrazzld/mindpalace/internal/platform/postgres"
	"github.com/phrazzld/mindpalace/internal/store"
)

// setupAppDatabase opens the database, configures the connection pool and
// applies pending migrations.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := postgres.Migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("database connection established")
	return db, nil
}

// setupPalaceStore returns the store selected by cfg.Storage.Driver. The
// returned database is nil for the file driver.
func setupPalaceStore(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (store.PalaceStore, *sql.DB, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		db, err := setupAppDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewPalaceStore(db, cfg.Palace.ID, logger), db, nil

	case config.StorageDriverFile, "":
		logger.Info("using file storage", slog.String("path", cfg.Storage.Path))
		return jsonfile.NewStore(cfg.Storage.Path, logger), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
