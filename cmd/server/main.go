package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Skotchmaster/carrental/internal/config"
	"github.com/Skotchmaster/carrental/internal/events"
	"github.com/Skotchmaster/carrental/internal/hash"
	"github.com/Skotchmaster/carrental/internal/httpserver"
	"github.com/Skotchmaster/carrental/internal/logging"
	"github.com/Skotchmaster/carrental/internal/metrics"
	"github.com/Skotchmaster/carrental/internal/middleware/csrf"
	"github.com/Skotchmaster/carrental/internal/middleware/gate"
	"github.com/Skotchmaster/carrental/internal/middleware/ratelimit"
	"github.com/Skotchmaster/carrental/internal/repo"
	"github.com/Skotchmaster/carrental/internal/service"
	"github.com/Skotchmaster/carrental/internal/session"
	"github.com/Skotchmaster/carrental/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()
	db, err := config.OpenDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		log.Fatalf("database: %v", err)
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		prod, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatal(err)
		}
		pub = prod
	} else {
		logger.Info("kafka disabled, KAFKA_BROKERS is empty")
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	store := repo.New(db)
	carrier := session.NewCarrier(cfg.CookieName, cfg.CookieSecure, cfg.TokenTTL)
	svc := service.NewAuthService(
		store,
		hash.New(cfg.BcryptCost),
		tokens.NewCodec(cfg.JWTSecret, cfg.TokenTTL),
		pub,
		collector,
	)
	svc.RegisterRoles = cfg.RegisterRoles

	limiter := ratelimit.New(ratelimit.Config{
		PerMinute: cfg.LoginRatePerMinute,
		Burst:     cfg.LoginRateBurst,
	}, collector)
	defer limiter.Stop()

	deps := &httpserver.Deps{
		Logger: logger,
		Auth:   &httpserver.AuthHTTP{Svc: svc, Carrier: carrier},
		Users:  &httpserver.UsersHTTP{Svc: svc},
		Health: &httpserver.HealthHTTP{Ready: store.Ping},
		Gate: gate.New(svc, carrier, gate.Config{
			PublicPaths:   cfg.PublicPaths,
			RecheckActive: cfg.RecheckActive,
		}, collector),
		Limiter: limiter,
		Metrics: metrics.Handler(prometheus.DefaultGatherer),
	}
	if cfg.CSRFEnabled {
		deps.CSRF = csrf.Middleware(csrf.Config{
			Secure:    cfg.CookieSecure,
			SkipPaths: httpserver.CSRFSkipPaths,
		})
	}

	e := httpserver.New(deps)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		logger.Warn("force exit")
		os.Exit(1)
	}()

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	} else {
		logger.Error("db() error", "error", err)
	}

	if err := pub.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
