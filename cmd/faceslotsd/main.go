// Command faceslotsd serves one watch face's slot coordinator over HTTP.
//
// Configuration is read from the file named by FACESLOTS_CONFIG (JSON or
// YAML). PORT overrides server.addr, CORS_ORIGINS restricts cross-origin
// callers, and LOG_LEVEL / LOG_FORMAT take precedence over the log section.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ferro-labs/faceslots"
	"github.com/ferro-labs/faceslots/internal/api"
	"github.com/ferro-labs/faceslots/internal/logging"
	"github.com/ferro-labs/faceslots/internal/ratelimit"
	"github.com/ferro-labs/faceslots/internal/version"
	"github.com/ferro-labs/faceslots/view"
)

func main() {
	if err := run(); err != nil {
		logging.Logger.Error("faceslotsd exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := os.Getenv("FACESLOTS_CONFIG")
	if cfgPath == "" {
		return errors.New("FACESLOTS_CONFIG is not set")
	}
	cfg, err := faceslots.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := faceslots.ValidateConfig(*cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	configureLogging(cfg.Log)
	logger := logging.Logger

	var corsOrigins []string
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsOrigins = strings.Split(origins, ",")
	}

	d, err := newDaemon(cfg, corsOrigins, logger)
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d.coordinator.Start(ctx)
	defer func() {
		if err := d.coordinator.Stop(); err != nil {
			logger.Error("coordinator stopped with error", "error", err)
		}
	}()

	addr := listenAddr(cfg.Server.Addr, os.Getenv("PORT"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      d.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("faceslotsd listening",
		"version", version.Short(),
		"addr", addr,
		"watch_face", cfg.WatchFace,
		"slots", len(d.components.Registry.Valid()),
		"backend", d.components.Backend.Name(),
		"chooser", chooserMode(cfg.Chooser.Mode),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// daemon is the assembled coordinator and its HTTP surface.
type daemon struct {
	coordinator *faceslots.Coordinator
	components  *faceslots.Components
	handler     http.Handler
}

func newDaemon(cfg *faceslots.Config, corsOrigins []string, logger *slog.Logger) (*daemon, error) {
	comps, err := cfg.Build(logger)
	if err != nil {
		return nil, err
	}

	coord := faceslots.New(cfg.CoordinatorConfig(), comps.Registry, comps.Client, comps.Launcher,
		faceslots.WithViewSink(view.NewLog(logger)),
		faceslots.WithLogger(logger),
	)

	handlers := &api.Handlers{
		Coordinator: coord,
		Providers:   comps.Catalog,
		Token:       cfg.Server.Token,
	}
	// Assigned only when set so a nil *chooser.HTTP never becomes a
	// non-nil interface.
	if comps.Sessions != nil {
		handlers.Sessions = comps.Sessions
	}
	if cfg.Server.RateLimit > 0 {
		burst := float64(cfg.Server.Burst)
		if burst <= 0 {
			burst = cfg.Server.RateLimit
		}
		handlers.Limiter = ratelimit.NewStore(cfg.Server.RateLimit, burst)
	}

	return &daemon{
		coordinator: coord,
		components:  comps,
		handler:     corsMiddleware(corsOrigins...)(api.NewRouter(handlers)),
	}, nil
}

func configureLogging(cfg faceslots.LogConfig) {
	level, format := os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")
	if level == "" {
		level = cfg.Level
	}
	if format == "" {
		format = cfg.Format
	}
	logging.Setup(level, format)
}

func listenAddr(configured, port string) string {
	if port != "" {
		return ":" + port
	}
	if configured != "" {
		return configured
	}
	return ":8080"
}

func chooserMode(m faceslots.ChooserMode) string {
	if m == "" {
		return string(faceslots.ChooserLocal)
	}
	return string(m)
}
