package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"adinsights/backend/internal/audit/domain"
)

type recordCapture struct {
	records []otellog.Record
}

func (r *recordCapture) Emit(_ context.Context, rec otellog.Record) {
	r.records = append(r.records, rec)
}

func attrs(rec otellog.Record) map[string]string {
	out := map[string]string{}
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value.AsString()
		return true
	})
	return out
}

func TestAuditExporter_Emit(t *testing.T) {
	capture := &recordCapture{}
	exp := NewAuditExporterWithLogger(capture)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := exp.Emit(context.Background(), &domain.AuditLog{
		ID: "evt-1", BrandID: "brand-acme", AccountID: "acct-1", Action: "sign_in",
		Resource: "auth", IP: "203.0.113.9", Metadata: `{"ok":true}`, CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(capture.records) != 1 {
		t.Fatalf("records = %d, want 1", len(capture.records))
	}
	rec := capture.records[0]
	if !rec.Timestamp().Equal(at) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), at)
	}
	if rec.Severity() != otellog.SeverityInfo {
		t.Errorf("severity = %v", rec.Severity())
	}
	if got := rec.Body().AsString(); got != "sign_in auth" {
		t.Errorf("body = %q", got)
	}
	got := attrs(rec)
	for k, want := range map[string]string{
		"audit.id": "evt-1", "audit.action": "sign_in", "audit.resource": "auth",
		"brand_id": "brand-acme", "account_id": "acct-1", "client.address": "203.0.113.9",
		"audit.metadata": `{"ok":true}`,
	} {
		if got[k] != want {
			t.Errorf("%s = %q, want %q", k, got[k], want)
		}
	}
}

func TestAuditExporter_OmitsEmptyOptionalAttributes(t *testing.T) {
	capture := &recordCapture{}
	_ = NewAuditExporterWithLogger(capture).Emit(context.Background(), &domain.AuditLog{Action: "sign_in_failure", Resource: "auth"})
	got := attrs(capture.records[0])
	if _, ok := got["account_id"]; ok {
		t.Error("account_id should be omitted")
	}
	if _, ok := got["audit.metadata"]; ok {
		t.Error("audit.metadata should be omitted")
	}
	if capture.records[0].Timestamp().IsZero() {
		t.Error("timestamp should default to now")
	}
}

func TestAuditExporter_NilSafe(t *testing.T) {
	var exp *AuditExporter
	if err := exp.Emit(context.Background(), &domain.AuditLog{}); err != nil {
		t.Errorf("nil exporter Emit: %v", err)
	}
	if NewAuditExporter(nil) != nil {
		t.Error("NewAuditExporter(nil) should be nil")
	}
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	exp = NewAuditExporter(provider)
	if err := exp.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(nil): %v", err)
	}
	if err := exp.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
