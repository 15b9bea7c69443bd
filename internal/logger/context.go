package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are added to every record logged with the enriched context.
type LogFields struct {
    ScanID    *string
    Filename  *string
    Component string // e.g. "bidwatch.scanner"
}

// WithLogFields merges fields into ctx, newer non-empty values winning.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
    merged := GetLogFields(ctx)
    if fields.ScanID != nil {
        merged.ScanID = fields.ScanID
    }
    if fields.Filename != nil {
        merged.Filename = fields.Filename
    }
    if fields.Component != "" {
        merged.Component = fields.Component
    }
    return context.WithValue(ctx, logFieldsKey, merged)
}

func GetLogFields(ctx context.Context) LogFields {
    if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
        return fields
    }
    return LogFields{}
}

func Ptr[T any](v T) *T {
    return &v
}

// Truncate shortens s to maxLen bytes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
    if len(s) <= maxLen {
        return s
    }
    return s[:maxLen] + "..."
}
