package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"tenantguard/internal/audit"
	"tenantguard/internal/audit/outbox"
	auditpostgres "tenantguard/internal/audit/postgres"
	"tenantguard/internal/authz/claims"
	authzmetrics "tenantguard/internal/authz/metrics"
	"tenantguard/internal/authz/resolver"
	authzservice "tenantguard/internal/authz/service"
	ctxstore "tenantguard/internal/authz/store"
	"tenantguard/internal/platform/config"
	"tenantguard/internal/platform/httpserver"
	"tenantguard/internal/platform/logger"
	"tenantguard/internal/platform/metrics"
	platformredis "tenantguard/internal/platform/redis"
	httptransport "tenantguard/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle
// small. Enforcement logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.New()
	am := authzmetrics.New()

	// Claim source: JWT-backed, optionally fronted by the Redis claim
	// cache whose TTL matches the claim-sync staleness window.
	var claimSource claims.Source = claims.NewJWTSource(cfg.JWTSigningKey, cfg.JWTIssuer)
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		return
	}
	if redisClient != nil {
		claimSource = claims.NewCache(claimSource, redisClient.Client, cfg.ClaimFreshness, log)
		defer redisClient.Close()
	}

	contexts := ctxstore.NewInMemory()

	// Audit store: Postgres when configured, memory otherwise. The
	// Postgres path also provides real transactions for privileged
	// procedures.
	var (
		auditStore audit.Store = audit.NewInMemory()
		storeTx    authzservice.StoreTx
		db         *sql.DB
	)
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			return
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres unreachable", "error", err)
			return
		}
		auditStore = auditpostgres.New(db)
		storeTx = newPostgresStoreTx(db)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	var recorderOpts []audit.RecorderOption
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.KafkaBrokers...))
		if err != nil {
			log.Error("kafka client", "error", err)
			return
		}
		defer kafkaClient.Close()
		if err := outbox.EnsureTopic(ctx, kafkaClient, cfg.KafkaAuditTopic, 3); err != nil {
			log.Error("ensure audit topic", "error", err)
			return
		}
		outboxCh := make(chan audit.Record, 256)
		recorderOpts = append(recorderOpts, audit.WithOutbox(outboxCh))
		publisher := outbox.NewPublisher(kafkaClient, cfg.KafkaAuditTopic, outboxCh, log)
		group.Go(func() error {
			err := publisher.Run(groupCtx)
			if err == context.Canceled {
				return nil
			}
			return err
		})
	}

	recorder := audit.NewRecorder(auditStore, log, recorderOpts...)

	res := resolver.New(claimSource, contexts, log,
		resolver.WithFreshnessThreshold(cfg.ClaimFreshness),
		resolver.WithMetrics(am),
	)

	svcOpts := []authzservice.Option{authzservice.WithMetrics(am)}
	if storeTx != nil {
		svcOpts = append(svcOpts, authzservice.WithStoreTx(storeTx))
	}
	svc := authzservice.New(res, contexts, recorder, log, svcOpts...)

	handler := httptransport.NewHandler(svc, log)
	router := httptransport.NewRouter(handler, log, httpMetrics)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting tenantguard", "addr", cfg.Addr)

	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Error("shutdown", "error", err)
	}
}
