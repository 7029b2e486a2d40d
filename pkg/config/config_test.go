package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 3000 {
		t.Errorf("default port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Server.Host != "" {
		t.Errorf("default host = %q, want empty", cfg.Server.Host)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("default read_timeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("default shutdown_timeout = %v, want 15s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.MaxHeaderBytes != 1<<20 {
		t.Errorf("default max_header_bytes = %d, want 1MB", cfg.Server.MaxHeaderBytes)
	}
	if cfg.Server.MaxBodySize != 10<<20 {
		t.Errorf("default max_body_size = %d, want 10MB", cfg.Server.MaxBodySize)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("default logging = %+v, want info/text", cfg.Logging)
	}
	if cfg.CORS.Enabled {
		t.Error("cors should be disabled by default")
	}
	if !cfg.CORS.Preflight {
		t.Error("cors preflight should be answered by default")
	}
	if cfg.RateLimit.Enabled {
		t.Error("rate limiting should be disabled by default")
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("default metrics = %+v, want enabled at /metrics", cfg.Observability.Metrics)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
server:
  host: 127.0.0.1
  port: 9090
  read_timeout: 5s
  write_timeout: 10s
  shutdown_timeout: 2s
  max_header_bytes: 8192
  max_body_size: 65536
  reuse_port: true
logging:
  level: debug
  format: json
  debug: router,server
cors:
  enabled: true
  origins:
    - https://example.com
  max_age: 600
rate_limit:
  enabled: true
  requests_per_second: 5
  burst: 10
observability:
  metrics:
    path: /internal/metrics
  tracing:
    enabled: true
`
	path := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("server address = %s:%d, want 127.0.0.1:9090", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read_timeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 10*time.Second {
		t.Errorf("write_timeout = %v, want 10s", cfg.Server.WriteTimeout)
	}
	if cfg.Server.ShutdownTimeout != 2*time.Second {
		t.Errorf("shutdown_timeout = %v, want 2s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.MaxHeaderBytes != 8192 || cfg.Server.MaxBodySize != 65536 {
		t.Errorf("limits = %d/%d, want 8192/65536", cfg.Server.MaxHeaderBytes, cfg.Server.MaxBodySize)
	}
	if !cfg.Server.ReusePort {
		t.Error("reuse_port should be true")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" || cfg.Logging.Debug != "router,server" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if !cfg.CORS.Enabled || len(cfg.CORS.Origins) != 1 || cfg.CORS.Origins[0] != "https://example.com" {
		t.Errorf("cors = %+v", cfg.CORS)
	}
	if cfg.CORS.MaxAge != 600 {
		t.Errorf("cors.max_age = %d, want 600", cfg.CORS.MaxAge)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RequestsPerSecond != 5 || cfg.RateLimit.Burst != 10 {
		t.Errorf("rate_limit = %+v", cfg.RateLimit)
	}
	if cfg.Observability.Metrics.Path != "/internal/metrics" {
		t.Errorf("metrics.path = %q, want /internal/metrics", cfg.Observability.Metrics.Path)
	}
	if !cfg.Observability.Tracing.Enabled {
		t.Error("tracing should be enabled")
	}
}

func TestYAMLDefaultsMerge(t *testing.T) {
	// Only the port is set; everything else keeps its default.
	path := writeTemp(t, "partial-*.yaml", "server:\n  port: 4000\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("read_timeout = %v, want default 30s", cfg.Server.ReadTimeout)
	}
	if len(cfg.CORS.Methods) != 6 {
		t.Errorf("cors.methods = %v, want defaults", cfg.CORS.Methods)
	}
	if cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("metrics.path = %q, want default", cfg.Observability.Metrics.Path)
	}
}

func TestEnvOverride(t *testing.T) {
	path := writeTemp(t, "config-*.yaml", `
server:
  host: 0.0.0.0
  port: 9090
logging:
  level: info
`)

	t.Setenv("EXPRESSO_HOST", "localhost")
	t.Setenv("EXPRESSO_PORT", "7070")
	t.Setenv("EXPRESSO_LOG_LEVEL", "warn")
	t.Setenv("EXPRESSO_LOG_FORMAT", "json")
	t.Setenv("EXPRESSO_DEBUG", "pipeline")
	t.Setenv("EXPRESSO_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("EXPRESSO_RATE_LIMIT", "2.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "localhost" {
		t.Errorf("host = %q, want env override", cfg.Server.Host)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" || cfg.Logging.Debug != "pipeline" {
		t.Errorf("logging = %+v, want env overrides", cfg.Logging)
	}
	if !cfg.CORS.Enabled {
		t.Error("EXPRESSO_CORS_ORIGINS should enable cors")
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORS.Origins) != len(want) || cfg.CORS.Origins[0] != want[0] || cfg.CORS.Origins[1] != want[1] {
		t.Errorf("cors.origins = %v, want %v", cfg.CORS.Origins, want)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("rate_limit = %+v, want enabled at 2.5", cfg.RateLimit)
	}
}

func TestEnvOverrideDisablesRateLimit(t *testing.T) {
	path := writeTemp(t, "config-*.yaml", `
rate_limit:
  enabled: true
  requests_per_second: 5
`)
	t.Setenv("EXPRESSO_RATE_LIMIT", "0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.RateLimit.Enabled {
		t.Error("EXPRESSO_RATE_LIMIT=0 should disable rate limiting")
	}
}

func TestEnvOverrideInvalidNumber(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "port", key: "EXPRESSO_PORT", value: "eighty", wantErr: "EXPRESSO_PORT"},
		{name: "rate limit", key: "EXPRESSO_RATE_LIMIT", value: "fast", wantErr: "EXPRESSO_RATE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("EXPRESSO_CONFIG", "")
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFileDiscovery(t *testing.T) {
	// Test 1: Explicit path.
	tmpFile := writeTemp(t, "config-*.yaml", "server:\n  port: 4001\n")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load(explicit) error: %v", err)
	}
	if cfg.Server.Port != 4001 {
		t.Errorf("explicit path: port = %d, want 4001", cfg.Server.Port)
	}

	// Test 2: EXPRESSO_CONFIG env var.
	envFile := writeTemp(t, "envconfig-*.yaml", "server:\n  port: 4002\n")
	t.Setenv("EXPRESSO_CONFIG", envFile)

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(EXPRESSO_CONFIG) error: %v", err)
	}
	if cfg.Server.Port != 4002 {
		t.Errorf("EXPRESSO_CONFIG: port = %d, want 4002", cfg.Server.Port)
	}

	// Test 3: No file, no env config, uses defaults + env overrides.
	t.Setenv("EXPRESSO_CONFIG", "")
	t.Setenv("EXPRESSO_PORT", "4003")

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(no file) error: %v", err)
	}
	if cfg.Server.Port != 4003 {
		t.Errorf("no file: port = %d, want env override", cfg.Server.Port)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err == nil || !strings.Contains(err.Error(), "loading config file") {
			t.Errorf("error = %v, want loading config file error", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeTemp(t, "bad-*.yaml", "server: [port\n")
		if _, err := Load(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		path := writeTemp(t, "bad-*.yaml", "server:\n  read_timeout: soon\n")
		if _, err := Load(path); err == nil {
			t.Error("expected duration error")
		}
	})

	t.Run("validation", func(t *testing.T) {
		path := writeTemp(t, "bad-*.yaml", "server:\n  port: 70000\n")
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "config validation") {
			t.Errorf("error = %v, want validation error", err)
		}
	})
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			modify:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port must be between 1 and 65535",
		},
		{
			name:    "port too large",
			modify:  func(c *Config) { c.Server.Port = 65536 },
			wantErr: "server.port must be between 1 and 65535",
		},
		{
			name:    "negative read timeout",
			modify:  func(c *Config) { c.Server.ReadTimeout = -time.Second },
			wantErr: "server.read_timeout must be >= 0",
		},
		{
			name:    "negative write timeout",
			modify:  func(c *Config) { c.Server.WriteTimeout = -time.Second },
			wantErr: "server.write_timeout must be >= 0",
		},
		{
			name:    "zero shutdown timeout",
			modify:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "server.shutdown_timeout must be > 0",
		},
		{
			name:    "zero header limit",
			modify:  func(c *Config) { c.Server.MaxHeaderBytes = 0 },
			wantErr: "server.max_header_bytes must be > 0",
		},
		{
			name:    "negative body limit",
			modify:  func(c *Config) { c.Server.MaxBodySize = -1 },
			wantErr: "server.max_body_size must be >= 0",
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level must be",
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format must be",
		},
		{
			name: "cors without origins",
			modify: func(c *Config) {
				c.CORS.Enabled = true
				c.CORS.Origins = nil
			},
			wantErr: "cors.origins is required",
		},
		{
			name:    "negative cors max age",
			modify:  func(c *Config) { c.CORS.MaxAge = -1 },
			wantErr: "cors.max_age must be >= 0",
		},
		{
			name: "rate limit without rate",
			modify: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.RequestsPerSecond = 0
			},
			wantErr: "rate_limit.requests_per_second must be > 0",
		},
		{
			name: "negative burst",
			modify: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.Burst = -1
			},
			wantErr: "rate_limit.burst must be >= 0",
		},
		{
			name:    "relative metrics path",
			modify:  func(c *Config) { c.Observability.Metrics.Path = "metrics" },
			wantErr: "observability.metrics.path must start with",
		},
		{
			name: "disabled metrics ignores path",
			modify: func(c *Config) {
				c.Observability.Metrics.Enabled = false
				c.Observability.Metrics.Path = ""
			},
		},
		{
			name: "uppercase log level",
			modify: func(c *Config) {
				c.Logging.Level = "DEBUG"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidationJoinsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = -1
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"server.port", "logging.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , ,b ", []string{"a", "b"}},
		{",,", nil},
	}
	for _, tt := range tests {
		got := splitList(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// writeTemp creates a temporary file with the given content and returns its path.
func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		t.Fatalf("writing temp file: %v", err)
	}
	f.Close()
	return f.Name()
}
