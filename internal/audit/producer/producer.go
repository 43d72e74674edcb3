// Package producer ships audit events to Kafka so a worker can persist them off the request path.
package producer

import (
	"context"

	"adinsights/backend/internal/audit/domain"
)

// Producer emits audit events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, event *domain.AuditLog) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}
