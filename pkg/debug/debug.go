// Package debug gates verbose framework output by subsystem.
//
// Two settings combine. The category set chooses which subsystems may
// speak: EXPRESSO_DEBUG or logging.debug, e.g. "router,server". The log
// level decides whether their messages reach the handler: DEBUG shows
// Log output and TRACE adds Trace output, such as raw request heads.
//
//	debug.Log(debug.Router, "route added", "route", "GET /hello")
//	if debug.TraceIsEnabled(debug.Server) { /* format the request head */ }
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// Categories accepted in EXPRESSO_DEBUG and logging.debug.
const (
	Router     = "router"     // route registration, replacement and misses
	Pipeline   = "pipeline"   // chain execution and short-circuits
	Middleware = "middleware" // global middleware registration
	Server     = "server"     // connections, parse rejections, response framing
	Config     = "config"     // config file discovery
	All        = "all"
)

var known = []string{Router, Pipeline, Middleware, Server, Config}

// LevelTrace is one step below slog.LevelDebug.
const LevelTrace = slog.LevelDebug - 4

// enabled holds the active category set. It is swapped whole so request
// goroutines never observe a partial update.
var enabled atomic.Pointer[map[string]bool]

func init() {
	SetCategories(os.Getenv("EXPRESSO_DEBUG"))
}

// Init applies the configured categories and level, installs a default
// slog logger on stderr and returns it. EXPRESSO_DEBUG and
// EXPRESSO_LOG_LEVEL take precedence over the config values.
func Init(configCategories, configLevel, format string) *slog.Logger {
	cats := os.Getenv("EXPRESSO_DEBUG")
	if cats == "" {
		cats = configCategories
	}
	level := os.Getenv("EXPRESSO_LOG_LEVEL")
	if level == "" {
		level = configLevel
	}

	logger := NewLogger(os.Stderr, ParseLevel(level), format)
	slog.SetDefault(logger)

	SetCategories(cats)
	for _, cat := range Unknown(cats) {
		logger.Warn("unknown debug category ignored", "category", cat, "known", strings.Join(known, ","))
	}
	return logger
}

// NewLogger builds a text or JSON slog logger for w. Any format other
// than "json" yields text.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetCategories replaces the active category set with the comma-separated
// list s and returns a function restoring the previous set.
func SetCategories(s string) (restore func()) {
	next := parseCategories(s)
	prev := enabled.Swap(&next)
	return func() { enabled.Store(prev) }
}

// Unknown returns the entries of the comma-separated list s that name no
// category.
func Unknown(s string) []string {
	var out []string
	for cat := range parseCategories(s) {
		if cat != All && !slices.Contains(known, cat) {
			out = append(out, cat)
		}
	}
	slices.Sort(out)
	return out
}

// Enabled reports whether category may emit output.
func Enabled(category string) bool {
	m := enabled.Load()
	if m == nil {
		return false
	}
	return (*m)[All] || (*m)[category]
}

// Log emits a debug record tagged with category when it is enabled.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace is Log at LevelTrace.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether Trace output for category would be
// written. Use it to skip formatting work.
func TraceIsEnabled(category string) bool {
	return Enabled(category) && slog.Default().Enabled(context.Background(), LevelTrace)
}

// ParseLevel maps TRACE, DEBUG, INFO, WARN(ING) and ERROR, in any case, to
// a slog level. Anything else is INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Truncate shortens s to maxLen bytes plus "..." for log output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		if cat = strings.ToLower(strings.TrimSpace(cat)); cat != "" {
			m[cat] = true
		}
	}
	return m
}
