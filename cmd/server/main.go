// Command server wires dependencies from config and runs the persona
// derivation HTTP service. Business logic lives in internal packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"personad/internal/audit"
	"personad/internal/fetch"
	"personad/internal/person/handler"
	personmetrics "personad/internal/person/metrics"
	"personad/internal/person/service"
	"personad/internal/person/store"
	"personad/internal/persona/openai"
	"personad/internal/persona/pipeline"
	"personad/internal/platform/config"
	"personad/internal/platform/httpserver"
	"personad/internal/platform/lock"
	"personad/internal/platform/logger"
	"personad/internal/platform/metrics"
	"personad/internal/platform/postgres"
	platformredis "personad/internal/platform/redis"
	httptransport "personad/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthCheck{}

	var personStore store.Store
	if cfg.DatabaseURL != "" {
		pool, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		personStore = store.NewPostgres(pool)
		checks["postgres"] = pool.Ping
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		personStore = store.NewInMemory()
	}

	var locker lock.Locker = lock.NewKeyed()
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedis(redisClient)
		checks["redis"] = redisClient.Health
	}

	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set, persona derivation will fail")
	}
	backend := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	deriver := pipeline.New(backend, cfg.OpenAIModel, cfg.LLMTimeout, log)

	auditPublisher, closeAudit, err := buildAuditPublisher(cfg, log)
	if err != nil {
		log.Error("audit publisher setup failed", "error", err)
		os.Exit(1)
	}
	defer closeAudit()

	auditWorker := audit.NewWorker(auditPublisher, 256)
	go func() {
		if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	svc := service.New(
		personStore,
		deriver,
		fetch.New(log),
		locker,
		personmetrics.New(),
		auditWorker,
		log,
	)

	// Two pipeline stages plus persistence must fit in one request.
	requestTimeout := 2*cfg.LLMTimeout + 30*time.Second

	router := httptransport.NewRouter(httptransport.Config{
		Person:         handler.New(svc, log),
		Logger:         log,
		Metrics:        metrics.New(),
		RequestTimeout: requestTimeout,
		Checks:         checks,
	})

	srv := httpserver.New(cfg.Addr, router, requestTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting personad", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error("server error", "error", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

func buildAuditPublisher(cfg config.Config, log *slog.Logger) (*audit.Publisher, func(), error) {
	auditStore := audit.NewInMemoryStore()
	if cfg.KafkaBrokers == "" {
		return audit.NewPublisher(auditStore), func() {}, nil
	}

	brokers := strings.Split(cfg.KafkaBrokers, ",")
	sink, err := audit.NewKafkaSink(brokers, cfg.KafkaAuditTopic, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info("audit events streaming to kafka", "topic", cfg.KafkaAuditTopic)
	return audit.NewPublisher(auditStore, sink), sink.Close, nil
}
