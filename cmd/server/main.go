// Command server runs an expresso application with the demo routes.
//
// Configuration is read from a YAML file and EXPRESSO_* environment
// variables. See pkg/config for the full list. Commonly used:
//
//	EXPRESSO_CONFIG     - Path to the config file
//	EXPRESSO_PORT       - Listen port (default: 3000)
//	EXPRESSO_LOG_LEVEL  - debug, info, warn, error (default: info)
//	EXPRESSO_DEBUG      - Debug categories, e.g. "router,server" or "all"
//	EXPRESSO_RATE_LIMIT - Requests per second per client (default: off)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rhuss/expresso/pkg/app"
	"github.com/rhuss/expresso/pkg/config"
	"github.com/rhuss/expresso/pkg/debug"
	transporthttp "github.com/rhuss/expresso/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)

	e := newApp(cfg, logger)

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.Listen(ctx, cfg.Server.Port, announceReady(e, logger))
	})
	g.Go(func() error {
		return reloadOnHangup(ctx, configPath, logger)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// announceReady returns the Listen callback reporting what is being served.
func announceReady(e *app.Expresso, logger *slog.Logger) func() {
	return func() {
		logger.Info("expresso ready",
			"addr", e.Addr(),
			"routes", len(e.Routes()),
			"middleware", e.MiddlewareCount(),
		)
	}
}

// reloadOnHangup re-reads the config on SIGHUP and applies its debug
// categories. Other settings need a restart.
func reloadOnHangup(ctx context.Context, configPath string, logger *slog.Logger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			cfg, err := config.Load(configPath)
			if err != nil {
				logger.Warn("config reload failed, keeping current debug categories", "error", err)
				continue
			}
			debug.SetCategories(cfg.Logging.Debug)
			logger.Info("debug categories reloaded", "categories", cfg.Logging.Debug)
		}
	}
}

// newApp builds the application from cfg without binding a socket.
func newApp(cfg *config.Config, logger *slog.Logger) *app.Expresso {
	e := app.New(
		app.WithLogger(logger),
		app.WithHost(cfg.Server.Host),
		app.WithServerOptions(
			transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
			transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
			transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
			transporthttp.WithMaxHeaderBytes(cfg.Server.MaxHeaderBytes),
			transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
			transporthttp.WithReusePort(cfg.Server.ReusePort),
		),
	)

	registerMiddleware(e, cfg)
	registerRoutes(e, cfg)
	return e
}
