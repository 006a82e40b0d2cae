// Package config manages environment variables.
//
// It reads variables from the environment (optionally seeded from a
// `.env` file), loads them into structured Go types, and validates that
// required values are present so they can be reused across the
// application runtime.
package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	// Side-effect import: loads a `.env` file into the process
	// environment before any env var is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// PlaceholderGoogleAPIKey is the sample value shipped in .env templates.
// A key equal to it is treated as not configured.
const PlaceholderGoogleAPIKey = "your-google-api-key-here"

// Config is the root configuration object for the application.
//
// Env vars use the APITEST_ prefix and dots for nesting, e.g.
// APITEST_SERVER.PORT -> server.port -> Config.Server.Port.
type Config struct {
	Primary  Primary        `koanf:"primary" validate:"required"`
	Server   ServerConfig   `koanf:"server" validate:"required"`
	Database DatabaseConfig `koanf:"database" validate:"required"`
	NLQuery  NLQueryConfig  `koanf:"nlquery" validate:"required"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// NLQueryConfig holds settings for the natural-language users query
// pipeline: provider credentials, model identifiers, and paging bounds.
//
// The API keys are optional at startup; each provider checks its own key
// at resolution time so a deployment can run with a single provider
// configured.
type NLQueryConfig struct {
	GoogleAPIKey     string `koanf:"google_api_key"`
	GoogleModel      string `koanf:"google_model" validate:"required"`
	OpenRouterAPIKey string `koanf:"openrouter_api_key"`
	OpenRouterModel  string `koanf:"openrouter_model" validate:"required"`
	DefaultLimit     int    `koanf:"default_limit" validate:"required,gte=1,lte=100"`
	MaxLimit         int    `koanf:"max_limit" validate:"required,gte=1,lte=100"`
}

// Load reads configuration from environment variables, unmarshals it
// into Config, validates it, and returns the result. Any failure is
// fatal: a process with bad config should not come up.
func Load() (*Config, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	k := koanf.New(".")

	err := k.Load(env.Provider("APITEST_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "APITEST_"))
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not load initial env variables.")
	}

	mainConfig := &Config{}
	if err = k.Unmarshal("", mainConfig); err != nil {
		logger.Fatal().Err(err).Msg("Could not unmarshal main config.")
	}

	applyNLQueryDefaults(&mainConfig.NLQuery)

	validate := validator.New()
	if err = validate.Struct(mainConfig); err != nil {
		logger.Fatal().Err(err).Msg("Config validation failed.")
	}

	if mainConfig.NLQuery.DefaultLimit > mainConfig.NLQuery.MaxLimit {
		logger.Fatal().
			Int("default_limit", mainConfig.NLQuery.DefaultLimit).
			Int("max_limit", mainConfig.NLQuery.MaxLimit).
			Msg("nlquery default_limit must not exceed max_limit")
	}

	return mainConfig, nil
}

// applyNLQueryDefaults fills the optional nlquery block so deployments
// only need to supply credentials.
func applyNLQueryDefaults(cfg *NLQueryConfig) {
	if cfg.GoogleModel == "" {
		cfg.GoogleModel = "gemini-2.0-flash"
	}
	if cfg.OpenRouterModel == "" {
		cfg.OpenRouterModel = "openrouter/auto"
	}
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit == 0 {
		cfg.MaxLimit = 100
	}
}
