// Package logger builds the process-wide slog logger: JSON on stdout, optionally fanned out to
// the OpenTelemetry log pipeline.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// New returns a JSON logger writing to w at the given level ("debug", "info", "warn", "error").
// When withOTel is true records are also handed to the global OTel LoggerProvider under serviceName.
func New(w io.Writer, level, serviceName string, withOTel bool) *slog.Logger {
	lvl := ParseLevel(level)
	var handler slog.Handler = NewTraceContextHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	if withOTel {
		handler = NewMultiHandler(handler, otelslog.NewHandler(serviceName,
			otelslog.WithLoggerProvider(global.GetLoggerProvider())))
	}
	return slog.New(handler).With("service", serviceName)
}

// ParseLevel maps a level name to slog.Level; unknown names yield Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MultiHandler sends each record to every handler that is enabled for its level.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			_ = handler.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		out[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: out}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		out[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: out}
}

// TraceContextHandler adds trace_id and span_id of the active span to each record.
type TraceContextHandler struct {
	slog.Handler
}

func NewTraceContextHandler(h slog.Handler) *TraceContextHandler {
	return &TraceContextHandler{Handler: h}
}

func (h *TraceContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *TraceContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceContextHandler) WithGroup(name string) slog.Handler {
	return &TraceContextHandler{Handler: h.Handler.WithGroup(name)}
}
