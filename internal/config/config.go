// Package config defines the global configuration structure for the bedsight
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Service configuration comes from the environment (envconfig tags, with an
// optional .env file for local development). The biological criteria profile
// -- weights, normalization bands, hard gates, relaxation tiers, search and
// confidence tuning -- has compiled-in defaults and may be overridden by a
// YAML profile file referenced via PROFILE_PATH.
//
// Any missing required value, malformed value, or profile invariant violation
// causes the application to fail immediately on startup (fail fast).
package config

import (
	"time"

	"bedsight/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the bedsight service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"bedsight-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server    ServerConfig
	Providers ProviderConfig
	Security  SecurityConfig

	// Profile file override. Empty means compiled-in defaults.
	ProfilePath string `envconfig:"PROFILE_PATH"`

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
}

// ProviderConfig holds the endpoints and credentials for the external feature
// providers (terrain sampler, weather forecast, road network). These are the
// only outbound dependencies of the service.
type ProviderConfig struct {
	TerrainURL string `envconfig:"TERRAIN_PROVIDER_URL" validate:"omitempty,url"`
	WeatherURL string `envconfig:"WEATHER_PROVIDER_URL" validate:"omitempty,url"`
	RoadsURL   string `envconfig:"ROADS_PROVIDER_URL" validate:"omitempty,url"`

	APIKey    SecretString  `envconfig:"PROVIDER_API_KEY"`
	Timeout   time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s"`
	UserAgent string        `envconfig:"PROVIDER_USER_AGENT" default:"Bedsight-Sampler/1.0"`
}

// SecurityConfig holds CORS settings for the API chassis.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Build metadata variables populated via -ldflags at compile time, e.g.:
//
//	go build -ldflags "-X bedsight/internal/config.buildVersion=v1.2.3"
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildTime    = "unknown"
)

// NewBuildInfo returns the build metadata captured at compile time.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   buildVersion,
		Commit:    buildCommit,
		BuildTime: buildTime,
	}
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrProfile indicates the criteria profile was unreadable or violated a
	// domain invariant (weights, gates, relaxation tiers).
	ErrProfile ConfigErrorType = "PROFILE_INVALID"
)
