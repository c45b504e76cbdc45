package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/backend"
	"staybook/internal/adapters/events"
	server "staybook/internal/adapters/http_server"
	"staybook/internal/adapters/observability"
	"staybook/internal/adapters/processor"
	redisad "staybook/internal/adapters/redis"
	"staybook/internal/app"
	"staybook/internal/catalog"
	"staybook/internal/domain"
	"staybook/internal/shared"
	mysqlrepo "staybook/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// deps
	bc, err := backend.New(cfg.BackendBase, cfg.BackendRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; reads fall through to the backend")
	}
	q := app.NewQueryService(bc, cache, cfg.CacheTTL)

	var ledger domain.AttemptLedger
	var db *sql.DB
	if cfg.MySQLDSN != "" {
		db, err = mysqlrepo.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("payment ledger unavailable")
		}
		defer db.Close()
		ledger = mysqlrepo.New(db)
		log.Info().Msg("payment ledger connected")
	} else {
		log.Warn().Msg("MYSQL_DSN is empty; unrecorded payments will not be reconciled")
	}

	pub, err := events.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("amqp connect failed")
	}
	defer pub.Close()

	h := &server.Handlers{Q: q, Catalog: catalog.Default()}
	if cfg.PaymentsEnabled() {
		pc, err := processor.New(cfg.ProcessorBase, cfg.ProcessorPublishableKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize processor client")
		}
		ps := app.NewPaymentService(bc, pc, ledger, cfg.PaymentSessionTTL)
		ps.OnSuccess(func(ctx context.Context, ev domain.BookingPaid) {
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := pub.PublishBookingPaid(pctx, ev); err != nil {
				log.Error().Err(err).Str("booking", ev.BookingID).Msg("booking_paid not published")
			}
		})
		go ps.RunJanitor(ctx, time.Minute)
		h.P = ps
	}

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Bool("payments", h.P != nil).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// in-flight confirmations get the full request budget to finish
	sctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
