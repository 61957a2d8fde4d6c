package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/careloop/portal-api/internal/config"
	"github.com/careloop/portal-api/internal/repository/postgres"
	"github.com/careloop/portal-api/pkg/logger"
	redisBroker "github.com/careloop/portal-api/pkg/messaging/redis"
	"github.com/careloop/portal-api/pkg/metrics"
	"github.com/careloop/portal-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{Pretty: cfg.Logger.Pretty})
	zl := log.Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	redisURL := fmt.Sprintf("redis://:%s@%s/%d", cfg.Redis.Password, cfg.Redis.Addr, cfg.Redis.DB)
	broker, err := redisBroker.NewBroker(redisBroker.Config{URL: redisURL}, zl)
	if err != nil {
		log.Fatal(err, "failed to connect to Redis broker")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.MaxRetries,
		},
		zl,
		metrics.New("portal", "worker"),
	)

	setupHealthCheck(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down worker")
		cancel()
	}()

	processor.Start(ctx)
}

func setupHealthCheck(log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8082", mux); err != nil {
			log.Error(err, "health check server failed")
		}
	}()
}
