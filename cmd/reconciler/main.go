package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/backend"
	"staybook/internal/adapters/observability"
	"staybook/internal/app"
	"staybook/internal/shared"
	mysqlrepo "staybook/internal/storage/mysql"
)

func main() {
	every := flag.Duration("every", 0, "repeat the pass at this interval; 0 runs once")
	flag.Parse()

	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("backend", cfg.BackendBase).
		Int("workers", cfg.ReconcileWorkers).
		Int("batch", cfg.ReconcileBatch).
		Dur("every", *every).
		Msg("reconciler starting")

	if cfg.MySQLDSN == "" {
		log.Fatal().Msg("MYSQL_DSN is required")
	}
	if cfg.BackendServiceToken == "" {
		log.Fatal().Msg("BACKEND_SERVICE_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db open failed")
	}
	defer db.Close()
	log.Info().Msg("db ping ok")

	client, err := backend.New(cfg.BackendBase, cfg.BackendRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend client")
	}
	svc := app.NewReconcileService(client, mysqlrepo.New(db), cfg.BackendServiceToken, cfg.ReconcileWorkers)

	pass := func() {
		res, err := svc.Run(ctx, cfg.ReconcileBatch)
		if err != nil {
			log.Error().Err(err).Msg("reconcile pass failed")
			return
		}
		log.Info().
			Int("checked", res.Checked).
			Int("reconciled", res.Reconciled).
			Int("failed", res.Failed).
			Msg("reconcile pass completed")
	}

	pass()
	if *every <= 0 {
		return
	}
	t := time.NewTicker(*every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconciler stopped")
			return
		case <-t.C:
			pass()
		}
	}
}
