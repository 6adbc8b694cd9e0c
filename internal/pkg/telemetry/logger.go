package telemetry

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/requestctx"
)

// ContextHandler is a custom slog.Handler that extracts TraceID and SpanID
// from the context and adds them as attributes to every log record, along
// with the request and session ids set by the HTTP layer.
type ContextHandler struct {
	slog.Handler
}

// Handle adds tracing context attributes before calling the underlying handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	spanContext := trace.SpanContextFromContext(ctx)
	if spanContext.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanContext.TraceID().String()))
	}
	if spanContext.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanContext.SpanID().String()))
	}
	if id := requestctx.RequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if id := requestctx.SessionID(ctx); id != "" {
		r.AddAttrs(slog.String("session_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs and WithGroup keep the decoration on derived loggers.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// NewContextHandler returns a new slog.Handler that decorates logs with tracing IDs.
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

// InitLogger initialises the global slog logger with a JSON handler decorated
// with tracing context, writing to w at the given level.
func InitLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(NewContextHandler(handler))
	slog.SetDefault(logger)
	return logger
}
