package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"adinsights/backend/internal/audit/domain"
	"adinsights/backend/internal/audit/producer"
	auditrepo "adinsights/backend/internal/audit/repository"
)

// SentinelBrandID is the brand_id used for audit events that have no brand (e.g. failed sign-in).
const SentinelBrandID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, brandID, accountID, action, resource, metadata string)
}

// Logger implements AuditLogger. Events are written to the repository inline when one is set and
// handed to the producer asynchronously when one is set. With Kafka the repository is left nil and
// the worker persists events.
type Logger struct {
	repo        auditrepo.Repository
	producer    producer.Producer
	ipExtractor IPExtractor
	log         *slog.Logger
}

// NewLogger returns an AuditLogger. repo, prod and ipExtractor may each be nil; a nil ipExtractor
// records the IP as "unknown".
func NewLogger(repo auditrepo.Repository, prod producer.Producer, ipExtractor IPExtractor, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{repo: repo, producer: prod, ipExtractor: ipExtractor, log: log.With("component", "audit")}
}

// LogEvent records one audit entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, brandID, accountID, action, resource, metadata string) {
	if l == nil || (l.repo == nil && l.producer == nil) {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	if brandID == "" {
		brandID = SentinelBrandID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		BrandID:   brandID,
		AccountID: accountID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if l.producer != nil {
		EmitAsync(l.producer, entry, l.log)
	}
	if l.repo == nil {
		return
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.ErrorContext(ctx, "failed to log event", "action", action, "resource", resource, "error", err)
	}
}
