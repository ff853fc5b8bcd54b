package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/mindpalace/internal/domain/srs"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "MINDPALACE"

// ConfigFileEnv names the environment variable holding an explicit config file path.
const ConfigFileEnv = "MINDPALACE_CONFIG"

// Load configuration from defaults, an optional config file and environment
// variables, in increasing order of precedence.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := srs.NewParams(cfg.SRS).Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: srs: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("storage.driver", StorageDriverFile)
	v.SetDefault("storage.path", "palace-save.json")
	v.SetDefault("auth.token_lifetime_minutes", 60*24)
	v.SetDefault("palace.id", "default-palace")
	v.SetDefault("palace.seed_samples", false)
}

// bindEnvs registers keys that have no default so AutomaticEnv can see them
// during Unmarshal.
func bindEnvs(v *viper.Viper) {
	for _, key := range []string{
		"storage.database_url",
		"auth.jwt_secret",
		"srs.initial_ease",
		"srs.min_ease",
		"srs.pass_threshold",
		"srs.first_interval",
		"srs.second_interval",
	} {
		_ = v.BindEnv(key)
	}
}
