package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adinsights/backend/internal/audit/domain"
)

// memAuditRepo implements the audit repository interface for tests.
type memAuditRepo struct {
	mu        sync.Mutex
	entries   []*domain.AuditLog
	createErr error
}

func (m *memAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAuditRepo) ListByBrand(ctx context.Context, brandID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

type chanProducer struct {
	events chan *domain.AuditLog
	err    error
}

func (p *chanProducer) Emit(ctx context.Context, event *domain.AuditLog) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	p.events <- event
	return p.err
}

func (p *chanProducer) Close() error { return nil }

func TestLogger_LogEvent_Repository(t *testing.T) {
	repo := &memAuditRepo{}
	l := NewLogger(repo, nil, func(context.Context) string { return "192.168.1.1" }, nil)

	l.LogEvent(context.Background(), "brand-1", "acc-1", ActionSignIn, ResourceAuth, "metadata")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.BrandID != "brand-1" || e.AccountID != "acc-1" || e.Action != ActionSignIn || e.Resource != ResourceAuth {
		t.Errorf("entry = %+v", e)
	}
	if e.IP != "192.168.1.1" || e.Metadata != "metadata" {
		t.Errorf("entry = %+v", e)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Error("ID and CreatedAt should be set")
	}
}

func TestLogger_LogEvent_Defaults(t *testing.T) {
	repo := &memAuditRepo{}
	NewLogger(repo, nil, nil, nil).LogEvent(context.Background(), "", "", ActionSignInFailure, ResourceAuth, "")
	NewLogger(repo, nil, func(context.Context) string { return "" }, nil).LogEvent(context.Background(), "", "", ActionSignInFailure, ResourceAuth, "")

	for _, e := range repo.entries {
		if e.IP != "unknown" {
			t.Errorf("ip = %q, want unknown", e.IP)
		}
		if e.BrandID != SentinelBrandID {
			t.Errorf("brand_id = %q, want %q", e.BrandID, SentinelBrandID)
		}
	}
}

func TestLogger_LogEvent_RepositoryErrorIsSwallowed(t *testing.T) {
	repo := &memAuditRepo{createErr: errors.New("db down")}
	NewLogger(repo, nil, nil, nil).LogEvent(context.Background(), "b", "a", ActionRefresh, ResourceAuth, "")
	if len(repo.entries) != 0 {
		t.Fatal("no entry expected")
	}
}

func TestLogger_LogEvent_NilSinks(t *testing.T) {
	NewLogger(nil, nil, nil, nil).LogEvent(context.Background(), "b", "a", ActionRefresh, ResourceAuth, "")
	var l *Logger
	l.LogEvent(context.Background(), "b", "a", ActionRefresh, ResourceAuth, "")
}

func TestLogger_LogEvent_ProducerIsAsync(t *testing.T) {
	p := &chanProducer{events: make(chan *domain.AuditLog, 1), err: errors.New("ignored")}
	NewLogger(nil, p, nil, nil).LogEvent(context.Background(), "brand-1", "acc-1", ActionAuthenticate, ResourceAuth, "")

	select {
	case e := <-p.events:
		if e.Action != ActionAuthenticate || e.BrandID != "brand-1" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("producer not called")
	}
}

func TestLogger_LogEvent_RepositoryAndProducer(t *testing.T) {
	repo := &memAuditRepo{}
	p := &chanProducer{events: make(chan *domain.AuditLog, 1)}
	NewLogger(repo, p, nil, nil).LogEvent(context.Background(), "brand-1", "acc-1", ActionRegister, ResourceAccount, "")

	select {
	case e := <-p.events:
		if e.Action != ActionRegister {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("producer not called")
	}
	if len(repo.entries) != 1 {
		t.Errorf("repository entries = %d, want 1", len(repo.entries))
	}
}

func TestEmitAsync_NilArgs(t *testing.T) {
	EmitAsync(nil, &domain.AuditLog{}, nil)
	EmitAsync(&chanProducer{events: make(chan *domain.AuditLog)}, nil, nil)
}
