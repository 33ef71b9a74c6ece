// Package main is the entry point of the progress API: REST endpoints, the
// notification websocket and the synchronous progress cascade.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ivnmtz09/yonna-akademia/config"
	"github.com/ivnmtz09/yonna-akademia/internal/app"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/persistence/redis"
	httpserver "github.com/ivnmtz09/yonna-akademia/internal/interface/http"
	"github.com/ivnmtz09/yonna-akademia/internal/interface/http/handlers"
	"github.com/ivnmtz09/yonna-akademia/internal/interface/ws"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := app.NewLogger(cfg).With(logger.Component("api"))
	defer func() { _ = log.Sync() }()

	log.Info("starting progress API",
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	infra, err := app.OpenInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REALTIME
	// ─────────────────────────────────────────────────────────────────────────
	// Without Redis the hub is the publisher. With Redis every API replica
	// publishes to the user channel and forwards the pattern subscription
	// into its own hub.
	hub := ws.NewHub(log)
	defer hub.Close()

	var (
		publisher notification.Publisher = hub
		cache     app.Cache
		forwarder *redis.Forwarder
	)
	if infra.Redis != nil {
		publisher = redis.NewPublisher(infra.Redis, log)
		cache = redis.NewOverviewCache(infra.Redis)
		forwarder = redis.NewForwarder(infra.Redis, hub, log)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION
	// ─────────────────────────────────────────────────────────────────────────
	application, err := app.New(infra.Repos, app.OptionsFrom(cfg, publisher, cache, log))
	if err != nil {
		return fmt.Errorf("failed to assemble application: %w", err)
	}
	defer func() { _ = application.Close() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	if infra.DB != nil {
		health.AddCheck("postgres", handlers.NewPingCheck(infra.DB))
	}
	if infra.Redis != nil {
		health.AddCheck("redis", handlers.NewPingCheck(infra.Redis))
	}

	srvCfg := httpserver.DefaultConfig()
	srvCfg.Host = cfg.HTTP.Host
	srvCfg.Port = cfg.HTTP.Port
	srvCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	srvCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	srvCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	srvCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	srvCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	srvCfg.TrustedProxies = cfg.HTTP.TrustedProxies

	inbox := ws.NewInbox(application.Queries.Notifications, application.Commands.Notifications)
	srv, err := httpserver.NewServer(srvCfg, httpserver.Dependencies{
		App:           application,
		Verifier:      handlers.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		WS:            ws.NewHandler(hub, inbox, cfg.Realtime.AllowedOrigins, log),
		HealthChecker: health,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. RUN & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)
	if forwarder != nil {
		g.Go(func() error { return forwarder.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("progress API stopped")
	return nil
}
