package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"adinsights/backend/internal/audit/domain"
	auditrepo "adinsights/backend/internal/audit/repository"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Consumer reads audit events from Kafka and persists them.
type Consumer struct {
	reader MessageReader
	repo   auditrepo.Repository
	log    *slog.Logger
}

func NewConsumer(reader MessageReader, repo auditrepo.Repository, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{reader: reader, repo: repo, log: log.With("component", "audit-consumer")}
}

// Run consumes until ctx is cancelled. Undecodable messages are logged and skipped; read and
// write failures are logged and the loop continues.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("kafka read failed", "error", err)
			continue
		}
		if err := c.Handle(ctx, msg.Value); err != nil {
			c.log.Error("audit persist failed", "offset", msg.Offset, "error", err)
		}
	}
}

// Handle decodes one JSON event and writes it to the repository.
func (c *Consumer) Handle(ctx context.Context, payload []byte) error {
	var entry domain.AuditLog
	if err := json.Unmarshal(payload, &entry); err != nil {
		c.log.Warn("skipping malformed audit event", "error", err)
		return nil
	}
	if entry.ID == "" || entry.Action == "" {
		c.log.Warn("skipping incomplete audit event", "id", entry.ID)
		return nil
	}
	if entry.BrandID == "" {
		entry.BrandID = SentinelBrandID
	}
	return c.repo.Create(ctx, &entry)
}
