package audit

import (
	"context"
	"log/slog"
	"time"

	"adinsights/backend/internal/audit/domain"
	"adinsights/backend/internal/audit/producer"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the servers stop before closing the producer,
// so in-flight async emits have time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine so the caller is not blocked. The goroutine uses
// context.Background() so request cancellation does not abort an in-flight emit.
func EmitAsync(p producer.Producer, event *domain.AuditLog, log *slog.Logger) {
	if p == nil || event == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := p.Emit(ctx, event); err != nil && log != nil {
			log.Error("async emit failed", "action", event.Action, "error", err)
		}
	}()
}
