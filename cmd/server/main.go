package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	adminhandler "quorumpay/internal/admin"
	approvalhandler "quorumpay/internal/approval/handler"
	approvalmetrics "quorumpay/internal/approval/metrics"
	"quorumpay/internal/approval/registry"
	"quorumpay/internal/approval/service"
	approvalstore "quorumpay/internal/approval/store"
	"quorumpay/internal/jwtauth"
	"quorumpay/internal/ledger"
	"quorumpay/internal/platform/config"
	"quorumpay/internal/platform/httpserver"
	"quorumpay/internal/platform/kafka"
	"quorumpay/internal/platform/logger"
	"quorumpay/internal/platform/middleware"
	platformredis "quorumpay/internal/platform/redis"
	"quorumpay/internal/platform/tracing"
	"quorumpay/internal/ratelimit"
	httptransport "quorumpay/internal/transport/http"
	"quorumpay/pkg/domain"
	"quorumpay/pkg/platform/audit"
	auditmemory "quorumpay/pkg/platform/audit/store/memory"
	auditpostgres "quorumpay/pkg/platform/audit/store/postgres"
)

// main wires dependencies from configuration and owns the process
// lifecycle. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Owner set and threshold are load-bearing configuration; refuse to
	// start on any violation.
	owners := make([]domain.Principal, 0, len(cfg.Owners))
	for _, raw := range cfg.Owners {
		owner, err := domain.ParsePrincipal(raw)
		if err != nil {
			return fmt.Errorf("invalid owner %q: %w", raw, err)
		}
		owners = append(owners, owner)
	}
	reg, err := registry.New(owners, cfg.Threshold)
	if err != nil {
		return fmt.Errorf("owner registry: %w", err)
	}

	shutdownTracing, err := tracing.Setup(ctx, "quorumpay", cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	healthChecks := map[string]httptransport.HealthCheck{}

	// Storage: postgres when configured, in-memory otherwise.
	var (
		txStore    approvalstore.TransactionStore
		auditStore audit.Store
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}

		pgStore := approvalstore.NewPostgres(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		pgAudit := auditpostgres.New(db)
		if err := pgAudit.EnsureSchema(ctx); err != nil {
			return err
		}
		txStore = pgStore
		auditStore = pgAudit
		healthChecks["postgres"] = db.PingContext
		log.Info("using postgres storage")
	} else {
		txStore = approvalstore.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("using in-memory storage, data is lost on restart")
	}

	// Rate limiting: redis-backed sliding window when configured.
	var limiterStore ratelimit.Store = ratelimit.NewInMemoryStore()
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		limiterStore = ratelimit.NewRedisStore(redisClient.Client)
		healthChecks["redis"] = redisClient.Health
		log.Info("using redis rate limiting")
	}

	publisher := audit.NewPublisher(auditStore, cfg.AuditBufferSize, log)

	group, groupCtx := errgroup.WithContext(ctx)

	// Optional Kafka sink for external audit indexing.
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer producer.Close()

		worker := audit.NewWorker(producer, publisher.Inbox(), log)
		group.Go(func() error { return worker.Run(groupCtx) })
		log.Info("publishing audit events to kafka", "topic", cfg.KafkaTopic)
	}

	pool := ledger.NewInMemory(cfg.InitialBalance)
	metrics := approvalmetrics.New()
	svc := service.NewService(reg, txStore, pool, publisher, metrics, log)

	tokens := jwtauth.NewService(cfg.JWTSigningKey, cfg.JWTIssuer)

	var devTokens *jwtauth.Handler
	if cfg.DevTokenEndpoint {
		devTokens = jwtauth.NewHandler(tokens, log)
		log.Warn("dev token endpoint enabled, anyone can mint a token")
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Approval:  approvalhandler.New(svc, log),
		Admin:     adminhandler.New(publisher, log),
		DevTokens: devTokens,
		Auth:      middleware.RequireAuth(tokens, log),
		AdminAuth: middleware.RequireAdminToken(
			cfg.AdminTokenHash, log),
		ProposeLimiter: ratelimit.Middleware(
			limiterStore, cfg.ProposeRateLimit, cfg.ProposeRateWindow, log),
		HealthChecks: healthChecks,
	})

	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting quorumpay",
			"addr", cfg.Addr,
			"owners", reg.OwnerCount(),
			"threshold", reg.Threshold(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
