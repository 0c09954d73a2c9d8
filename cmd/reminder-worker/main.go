package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/adhealth/clinic-scheduling/internal/appointment"
	"github.com/adhealth/clinic-scheduling/internal/config"
	"github.com/adhealth/clinic-scheduling/internal/db"
	"github.com/adhealth/clinic-scheduling/internal/logger"
	"github.com/adhealth/clinic-scheduling/internal/notify"
	"github.com/adhealth/clinic-scheduling/internal/provider"
)

// The reminder worker periodically emails patients whose confirmed visit
// falls inside the reminder window.

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

	log.Info("reminder-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("window", cfg.ReminderWindow),
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

	var sender notify.Sender
	if cfg.SendGridAPIKey != "" {
		sender = notify.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromEmail)
	} else {
		sender = notify.NewLogSender(log)
	}

	repo := appointment.NewPgRepository(pgPool)
	directory := provider.NewPgDirectory(pgPool)
	svc := appointment.NewService(repo, directory, appointment.Options{
		Notifier: sender,
		Logger:   log,
	})

	runOnce(rootCtx, svc, cfg.ReminderWindow, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.ReminderWindow, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, window time.Duration, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	sent, err := svc.SendUpcomingReminders(runCtx, window)
	if err != nil {
		log.Error("reminder run error", zap.Error(err))
		return
	}
	log.Info("reminder run complete",
		zap.Int("sent", sent),
		zap.Duration("took", time.Since(start)),
	)
}
