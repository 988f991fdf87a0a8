package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	request "civreg/pkg/platform/middleware/request"
	"civreg/pkg/platform/validation"
)

const defaultRequestTimeout = 30 * time.Second

// Registrar is implemented by every handler that mounts routes.
type Registrar interface {
	Register(r chi.Router)
}

type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *request.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	// Tracing wraps the whole stack when set.
	Tracing        func(http.Handler) http.Handler
}

// NewRouter wires the middleware stack and mounts each handler's routes.
func NewRouter(cfg RouterConfig, handlers ...Registrar) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	if cfg.Tracing != nil {
		r.Use(cfg.Tracing)
	}
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(request.ClientIP)
	r.Use(request.RequestTime)
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.LatencyMiddleware(cfg.Metrics))
	r.Use(request.BodyLimit(validation.MaxMultipartBodySize))
	r.Use(chimiddleware.Timeout(timeout))

	for _, h := range handlers {
		h.Register(r)
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
