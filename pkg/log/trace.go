package log

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

const (
	keyTraceID = "trace_id"
	keySpanID  = "span_id"
)

// TraceIDFromContext 从 context 中提取 traceID
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.TraceID().IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// traceFields 返回 ctx 中 span 对应的日志字段
func traceFields(ctx context.Context) []Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []Field{
		String(keyTraceID, sc.TraceID().String()),
		String(keySpanID, sc.SpanID().String()),
	}
}
