// Command server runs the badge engine as a standalone HTTP service.
//
// With no configuration it serves from in-memory stores, which is enough for
// local demos. Set LAUREL_POSTGRES_URL for durable storage and
// LAUREL_REDIS_URL to enable the claim-attempt throttle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"laurel/internal/badges/handler"
	"laurel/internal/badges/metrics"
	"laurel/internal/badges/service"
	awardstore "laurel/internal/badges/store/award"
	badgestore "laurel/internal/badges/store/badge"
	deferredstore "laurel/internal/badges/store/deferred"
	nominationstore "laurel/internal/badges/store/nomination"
	progressstore "laurel/internal/badges/store/progress"
	"laurel/internal/badges/store/schema"
	userstore "laurel/internal/badges/store/user"
	"laurel/internal/badges/throttle"
	"laurel/internal/mailer"
	"laurel/internal/platform/config"
	"laurel/internal/platform/httpserver"
	"laurel/internal/platform/logger"
	"laurel/internal/platform/middleware"
	platformredis "laurel/internal/platform/redis"
	"laurel/pkg/platform/audit"
	"laurel/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage. Postgres when configured, in-memory otherwise.
	var (
		badges      service.BadgeStore
		awards      service.AwardStore
		progress    service.ProgressStore
		nominations service.NominationStore
		deferred    service.DeferredStore
		users       service.UserStore
		auditStore  audit.Store
		txRunner    service.TxRunner
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := schema.Apply(ctx, db); err != nil {
			log.Error("apply schema", "error", err)
			os.Exit(1)
		}
		pgAudit := audit.NewPostgresStore(db)
		if err := pgAudit.ApplySchema(ctx); err != nil {
			log.Error("apply audit schema", "error", err)
			os.Exit(1)
		}
		badges = badgestore.NewPostgres(db)
		awards = awardstore.NewPostgres(db)
		progress = progressstore.NewPostgres(db)
		nominations = nominationstore.NewPostgres(db)
		deferred = deferredstore.NewPostgres(db)
		users = userstore.NewPostgres(db)
		auditStore = pgAudit
		txRunner = tx.NewRunner(db)
		log.Info("storage ready", "backend", "postgres")
	} else {
		badges = badgestore.NewInMemory()
		awards = awardstore.NewInMemory()
		progress = progressstore.NewInMemory()
		nominations = nominationstore.NewInMemory()
		deferred = deferredstore.NewInMemory()
		users = userstore.NewInMemory()
		auditStore = audit.NewInMemoryStore()
		log.Info("storage ready", "backend", "memory")
	}

	// Optional Redis-backed claim throttle.
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithMailer(mailer.NewLogMailer(log, cfg.BaseURL)),
	}
	if txRunner != nil {
		opts = append(opts, service.WithTxRunner(txRunner))
	}
	redisClient, err := platformredis.New(cfg.Redis())
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithClaimThrottle(throttle.NewRedis(redisClient.Client, throttle.Config{
			Limit:  cfg.ClaimAttemptLimit,
			Window: cfg.ClaimAttemptWindow,
		})))
		log.Info("claim throttle enabled",
			"limit", cfg.ClaimAttemptLimit,
			"window", cfg.ClaimAttemptWindow,
		)
	}

	// Audit outbox.
	publisher := audit.NewPublisher(cfg.AuditBuffer, log)
	worker := audit.NewWorker(auditStore, publisher.Inbox(), log)
	opts = append(opts, service.WithAuditPublisher(publisher))

	svc := service.New(badges, awards, progress, nominations, deferred, users, opts...)

	// Router.
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(middleware.NewHMACValidator(cfg.JWTSigningKey), log))
		handler.New(svc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
