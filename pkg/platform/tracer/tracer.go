// Package tracer is a small tracing abstraction over OpenTelemetry.
//
// Callers depend on Tracer and Span only; NoopTracer serves tests and
// deployments without a trace exporter, OTelTracer serves everything else.
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span. A non-nil err marks it failed.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
//
//	ctx, span := t.Start(ctx, tracer.SpanSubmit, tracer.String(tracer.AttrRenderPolicy, "render_at_insert"))
//	defer func() { span.End(err) }()
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the certificate pipeline.
const (
	SpanSubmit   = "certificate.submit"
	SpanRender   = "certificate.render"
	SpanStore    = "certificate.store"
	SpanDocument = "certificate.document"
	SpanNotify   = "certificate.notify"
)

// Attribute keys. Record values are never attached to spans.
const (
	AttrCertificateID = "certificate.id"
	AttrRenderPolicy  = "render.policy"
	AttrDocumentBytes = "document.bytes"
	AttrCacheHit      = "cache.hit"
	AttrStage         = "pipeline.stage"
	AttrRequestID     = "request.id"
)
