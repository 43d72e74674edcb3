// Worker consumes audit events from Kafka and persists them to Postgres.
// Set KAFKA_BROKERS, AUDIT_KAFKA_TOPIC, KAFKA_GROUP_ID and DATABASE_URL.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"adinsights/backend/internal/audit"
	auditrepo "adinsights/backend/internal/audit/repository"
	"adinsights/backend/internal/config"
	"adinsights/backend/internal/db"
	"adinsights/backend/internal/platform/logger"
)

func main() {
	cfg, err := config.Read()
	if err != nil {
		slog.Error("worker: config", "error", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, "adinsights-audit-worker", false)

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Error("worker: KAFKA_BROKERS is required")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		log.Error("worker: DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("worker: database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.AuditKafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	log.Info("worker: consuming", "topic", cfg.AuditKafkaTopic, "group", cfg.KafkaGroupID)
	if err := audit.NewConsumer(reader, auditrepo.NewPostgresRepository(pool), log).Run(ctx); err != nil {
		log.Error("worker: stopped", "error", err)
		os.Exit(1)
	}
	log.Info("worker: stopped")
}
