package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"

	"adinsights/backend/internal/audit/domain"
)

// auditScope is the instrumentation scope of audit log records.
const auditScope = "adinsights.audit"

type recordEmitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// AuditExporter mirrors audit events into the OTel log pipeline. It satisfies the audit
// producer interface so it can sit next to the Kafka producer.
type AuditExporter struct {
	logger recordEmitter
}

// NewAuditExporter returns an exporter logging through provider. Returns nil when provider is nil.
func NewAuditExporter(provider otellog.LoggerProvider) *AuditExporter {
	if provider == nil {
		return nil
	}
	return &AuditExporter{logger: provider.Logger(auditScope)}
}

// NewAuditExporterWithLogger wraps anything with an Emit(ctx, Record) method; used in tests.
func NewAuditExporterWithLogger(l recordEmitter) *AuditExporter {
	return &AuditExporter{logger: l}
}

// Emit converts event to an INFO log record. Safe on a nil exporter.
func (e *AuditExporter) Emit(ctx context.Context, event *domain.AuditLog) error {
	if e == nil || e.logger == nil || event == nil {
		return nil
	}
	var rec otellog.Record
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(time.Now().UTC())
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetSeverityText("INFO")
	rec.SetBody(otellog.StringValue(event.Action + " " + event.Resource))
	rec.AddAttributes(
		otellog.String("audit.id", event.ID),
		otellog.String("audit.action", event.Action),
		otellog.String("audit.resource", event.Resource),
		otellog.String("brand_id", event.BrandID),
		otellog.String("client.address", event.IP),
	)
	if event.AccountID != "" {
		rec.AddAttributes(otellog.String("account_id", event.AccountID))
	}
	if event.Metadata != "" {
		rec.AddAttributes(otellog.String("audit.metadata", event.Metadata))
	}
	e.logger.Emit(ctx, rec)
	return nil
}

// Close is a no-op; the LoggerProvider owns the export pipeline.
func (e *AuditExporter) Close() error { return nil }
