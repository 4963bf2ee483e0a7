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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"did-registry/internal/audit"
	authservice "did-registry/internal/auth/service"
	sessionstore "did-registry/internal/auth/store/session"
	"did-registry/internal/didkey"
	jwttoken "did-registry/internal/jwt_token"
	"did-registry/internal/notify"
	"did-registry/internal/platform/config"
	"did-registry/internal/platform/httpserver"
	"did-registry/internal/platform/logger"
	platformredis "did-registry/internal/platform/redis"
	"did-registry/internal/registry/credential"
	"did-registry/internal/registry/issuer"
	"did-registry/internal/registry/metrics"
	registryservice "did-registry/internal/registry/service"
	"did-registry/internal/registry/store"
	httptransport "did-registry/internal/transport/http"
)

// main wires dependencies and runs the server plus the audit worker until a
// termination signal. Business logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory otherwise.
	var identities store.Store = store.NewInMemory()
	var auditStore audit.Store = audit.NewInMemoryStore()
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("opening postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("ensuring identity schema", "error", err)
			os.Exit(1)
		}
		identities = pg

		outbox := audit.NewPostgresStore(db)
		if err := outbox.EnsureSchema(ctx); err != nil {
			log.Error("ensuring audit schema", "error", err)
			os.Exit(1)
		}
		auditStore = outbox
	}

	var sessions authservice.SessionStore = sessionstore.New()
	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("connecting to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		sessions = sessionstore.NewRedis(redisClient.Client)
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.KafkaBootstrap != "" {
		kafka, err := notify.NewKafka(cfg.KafkaBootstrap)
		if err != nil {
			log.Error("connecting to kafka", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		notifier = kafka
	}

	auditInbox := make(chan audit.Event, 256)
	auditor := audit.NewPublisher(auditInbox, log)
	auditWorker := audit.NewWorker(auditStore, auditInbox, log)

	m := metrics.New()
	keys := didkey.Generator{}

	registry := registryservice.New(
		identities,
		issuer.New(keys, identities, log,
			issuer.WithMaxAttempts(cfg.DIDMaxAttempts),
			issuer.WithTimeout(cfg.KeygenTimeout),
		),
		credential.New(identities, keys, log),
		log,
		registryservice.WithNotifier(notifier),
		registryservice.WithNotifyTimeout(cfg.NotifyTimeout),
		registryservice.WithAudit(auditor),
		registryservice.WithMetrics(m),
	)

	auth := authservice.New(
		identities,
		sessions,
		jwttoken.NewJWTService(cfg.JWTSigningKey, "did-registry"),
		log,
		authservice.WithSessionTTL(cfg.SessionTTL),
		authservice.WithAudit(auditor),
		authservice.WithMetrics(m),
	)

	authHandler := httptransport.NewAuthHandler(auth)
	registryHandler := httptransport.NewRegistryHandler(registry, authHandler)
	router := httptransport.NewRouter(registryHandler, authHandler, log)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditWorker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting did-registry", "addr", cfg.Addr)
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

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
