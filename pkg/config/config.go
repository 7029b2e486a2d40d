// Package config provides unified configuration for an expresso server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (EXPRESSO_ prefix)
//  4. Validation
package config

import "time"

// Config holds all configuration for an expresso server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	CORS          CORSConfig          `yaml:"cors"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds connection handler settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`             // default: "" (all interfaces)
	Port            int           `yaml:"port"`             // default: 3000
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 15s
	MaxHeaderBytes  int           `yaml:"max_header_bytes"` // default: 1 MB
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MB
	ReusePort       bool          `yaml:"reuse_port"`       // default: false
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error; default: "info"
	Format string `yaml:"format"` // text or json; default: "text"
	// Debug is a comma-separated list of debug categories, e.g. "router,server".
	Debug string `yaml:"debug"`
}

// CORSConfig holds cross-origin settings for the CORS middleware.
type CORSConfig struct {
	Enabled   bool     `yaml:"enabled"`   // default: false
	Origins   []string `yaml:"origins"`   // default: ["*"]
	Methods   []string `yaml:"methods"`   // default: GET..OPTIONS
	Headers   []string `yaml:"headers"`   // default: Content-Type, Authorization
	MaxAge    int      `yaml:"max_age"`   // seconds; default: 0 (omitted)
	Preflight bool     `yaml:"preflight"` // answer preflight requests; default: true
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`             // default: false
	RequestsPerSecond float64 `yaml:"requests_per_second"` // default: 10
	Burst             int     `yaml:"burst"`               // default: 20
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// TracingConfig controls the OpenTelemetry tracing middleware.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"` // default: false
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxHeaderBytes:  1 << 20,
			MaxBodySize:     10 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		CORS: CORSConfig{
			Origins:   []string{"*"},
			Methods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
			Headers:   []string{"Content-Type", "Authorization"},
			Preflight: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
