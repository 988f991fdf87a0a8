package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"civreg/internal/platform/config"
)

func TestInit_WithoutEndpoint(t *testing.T) {

	shutdown, err := Init(context.Background(), config.Telemetry{ServiceName: "civreg-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)

	_, span := otel.Tracer("test").Start(context.Background(), "probe")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Sampler("always_on", "").Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), Sampler("ALWAYS_OFF", "").Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), Sampler("traceidratio", "0.25").Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(1).Description(), Sampler("traceidratio", "7").Description())
	assert.Equal(t,
		sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1)).Description(),
		Sampler("", "").Description())
}

func TestHTTPMiddleware(t *testing.T) {
	shutdown, err := Init(context.Background(), config.Telemetry{Sampler: "always_on"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	var sc trace.SpanContext
	h := HTTPMiddleware("civreg-test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, sc.IsValid())
	assert.True(t, sc.IsSampled())
}
