package config

import (
	"github.com/phrazzld/mindpalace/internal/domain"
	"github.com/phrazzld/mindpalace/internal/domain/srs"
)

// Storage drivers
const (
	StorageDriverFile     = "file"
	StorageDriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig     `mapstructure:"server" validate:"required"`
	Storage StorageConfig    `mapstructure:"storage" validate:"required"`
	Auth    AuthConfig       `mapstructure:"auth"`
	Palace  PalaceConfig     `mapstructure:"palace" validate:"required"`
	SRS     srs.ParamsConfig `mapstructure:"srs"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
	// RequestTimeoutSeconds bounds each API request; zero disables the limit.
	RequestTimeoutSeconds  int    `mapstructure:"request_timeout_seconds" validate:"gte=0"`
}

// StorageConfig selects where the palace is persisted.
type StorageConfig struct {
	Driver      string `mapstructure:"driver" validate:"required,oneof=file postgres"`
	Path        string `mapstructure:"path" validate:"required_if=Driver file"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Driver postgres"`
}

// AuthConfig contains API authentication settings.
// An empty JWTSecret disables authentication.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gte=1"`
}

// PalaceConfig describes the palace being served.
type PalaceConfig struct {
	ID          string         `mapstructure:"id" validate:"required"`
	SeedSamples bool           `mapstructure:"seed_samples"`
	Loci        []domain.Locus `mapstructure:"loci" validate:"dive"`
}
