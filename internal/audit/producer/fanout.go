package producer

import (
	"context"
	"errors"
	"reflect"

	"adinsights/backend/internal/audit/domain"
)

// Fanout emits each event to every wrapped producer.
type Fanout struct {
	producers []Producer
}

// NewFanout wraps the non-nil producers. It returns nil when none remain so callers can pass the
// result straight to audit.NewLogger.
func NewFanout(ps ...Producer) Producer {
	var out []Producer
	for _, p := range ps {
		if isNil(p) {
			continue
		}
		out = append(out, p)
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return &Fanout{producers: out}
}

// Emit sends event to all producers and joins their errors.
func (f *Fanout) Emit(ctx context.Context, event *domain.AuditLog) error {
	var errs []error
	for _, p := range f.producers {
		if err := p.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all producers and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, p := range f.producers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// isNil catches typed nil pointers such as a (*KafkaProducer)(nil) returned for an empty broker list.
func isNil(p Producer) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
