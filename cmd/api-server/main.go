package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/adhealth/clinic-scheduling/internal/api"
	"github.com/adhealth/clinic-scheduling/internal/appointment"
	"github.com/adhealth/clinic-scheduling/internal/config"
	"github.com/adhealth/clinic-scheduling/internal/db"
	"github.com/adhealth/clinic-scheduling/internal/logger"
	"github.com/adhealth/clinic-scheduling/internal/notify"
	"github.com/adhealth/clinic-scheduling/internal/observability"
	"github.com/adhealth/clinic-scheduling/internal/provider"
	redisclient "github.com/adhealth/clinic-scheduling/internal/redis"
	"github.com/adhealth/clinic-scheduling/internal/telemed"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic("logger init error: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to postgres")

	migCtx, cancelMig := context.WithTimeout(rootCtx, 10*time.Second)
	err = db.Migrate(migCtx, pgPool)
	cancelMig()
	if err != nil {
		log.Fatal("schema migration error", zap.Error(err))
	}

	rdb, err := redisclient.Connect(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to redis")

	calendar, err := cfg.Calendar()
	if err != nil {
		log.Fatal("invalid clinic hours", zap.Error(err))
	}

	var sender notify.Sender
	if cfg.SendGridAPIKey != "" {
		sender = notify.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromEmail)
		log.Info("notifications via sendgrid")
	} else {
		sender = notify.NewLogSender(log)
		log.Info("notifications via log only (no SENDGRID_API_KEY)")
	}

	registry := prometheus.NewRegistry()
	metrics := observability.New(registry)

	directory := provider.NewPgDirectory(pgPool)
	repo := appointment.NewPgRepository(pgPool)
	svc := appointment.NewService(repo, directory, appointment.Options{
		Locker:   redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL),
		Calendar: calendar,
		Notifier: sender,
		Issuer:   telemed.NewIssuer(cfg.MeetingBaseURL),
		Metrics:  metrics,
		Logger:   log,
	})

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Directory: directory,
		PgPool:    pgPool,
		Redis:     rdb,
		Registry:  registry,
		Logger:    log,
		Env:       cfg.Env,
		Version:   version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
}
