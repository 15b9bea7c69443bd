package logger

import (
    "context"
    "io"
    "log/slog"
    "os"

    "go.opentelemetry.io/otel/trace"

    "bidwatch/internal/config"
)

func Setup(cfg config.Config) {
    slog.SetDefault(slog.New(NewHandler(cfg, os.Stdout)))
}

// NewHandler returns a JSON handler in production and a text handler
// elsewhere, both enriched by TraceHandler.
func NewHandler(cfg config.Config, w io.Writer) slog.Handler {
    opts := &slog.HandlerOptions{Level: slog.LevelInfo}
    if cfg.IsDevelopment() {
        opts.Level = slog.LevelDebug
    }
    if cfg.IsProduction() {
        return NewTraceHandler(slog.NewJSONHandler(w, opts))
    }
    return NewTraceHandler(slog.NewTextHandler(w, opts))
}

type TraceHandler struct {
    slog.Handler
}

func NewTraceHandler(h slog.Handler) *TraceHandler {
    return &TraceHandler{Handler: h}
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
    if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
        sc := span.SpanContext()
        r.AddAttrs(
            slog.String("trace_id", sc.TraceID().String()),
            slog.String("span_id", sc.SpanID().String()),
        )
    }

    fields := GetLogFields(ctx)
    if fields.ScanID != nil {
        r.AddAttrs(slog.String("scan_id", *fields.ScanID))
    }
    if fields.Filename != nil {
        r.AddAttrs(slog.String("filename", *fields.Filename))
    }
    if fields.Component != "" {
        r.AddAttrs(slog.String("component", fields.Component))
    }

    return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
    return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
    return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}
