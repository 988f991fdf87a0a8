package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"civreg/internal/certificate/cache"
	certhandler "civreg/internal/certificate/handler"
	certmetrics "civreg/internal/certificate/metrics"
	"civreg/internal/certificate/normalizer"
	"civreg/internal/certificate/notifier"
	"civreg/internal/certificate/render"
	certservice "civreg/internal/certificate/service"
	"civreg/internal/certificate/store"
	"civreg/internal/platform/config"
	"civreg/internal/platform/database"
	"civreg/internal/platform/health"
	"civreg/internal/platform/kafka"
	"civreg/internal/platform/kafka/producer"
	"civreg/internal/platform/logger"
	"civreg/internal/platform/objectstore"
	"civreg/internal/platform/redis"
	"civreg/internal/platform/telemetry"
	httptransport "civreg/internal/transport/http"
	uploadhandler "civreg/internal/upload/handler"
	uploadservice "civreg/internal/upload/service"
	"civreg/pkg/platform/circuit"
	request "civreg/pkg/platform/middleware/request"
	"civreg/pkg/platform/tracer"
)

const poolStatsInterval = 15 * time.Second

type eventProducer interface {
	notifier.Producer
	Close() error
}

// infra holds the optional backing services. Nil fields are not configured.
type infra struct {
	db          *database.Pool
	producer    eventProducer
	kafka       *kafka.HealthChecker
	redis       *redis.Client
	objectStore *objectstore.Client
}

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("initializing civreg",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
	)

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}()

	deps, err := buildInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close(log)

	multipartPolicy, err := certservice.ParseRenderPolicy(cfg.Pipeline.BirthCertificateRender)
	if err != nil {
		return fmt.Errorf("BIRTH_CERTIFICATE_RENDER_POLICY: %w", err)
	}
	log.Info("birth certificate render policy", "policy", multipartPolicy.String())

	certificates := buildCertificateService(cfg, deps, log)
	uploads := uploadservice.New(storageOrNil(deps.objectStore), uploadservice.WithLogger(log))

	healthHandler := health.New(cfg.Server.Environment)
	registerHealthChecks(healthHandler, deps)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:  log,
		Metrics: request.NewMetrics(),
		Tracing: telemetry.HTTPMiddleware(cfg.Telemetry.ServiceName),
	},
		healthHandler,
		certhandler.New(certificates, log, certhandler.WithMultipartRenderPolicy(multipartPolicy)),
		uploadhandler.New(uploads, log),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if deps.db != nil {
		g.Go(func() error {
			deps.db.RunPoolStats(gctx, poolStatsInterval)
			return nil
		})
	}
	if deps.redis != nil {
		g.Go(func() error {
			deps.redis.RunPoolStats(gctx, poolStatsInterval)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		if err := certificates.Wait(shutdownCtx); err != nil {
			log.Warn("in-flight notifications abandoned", "error", err)
		}
		return nil
	})

	return g.Wait()
}

func buildInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	deps := &infra{}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db != nil {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("postgres store enabled")
		deps.db = db
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(cfg.Kafka, log)
		if err != nil {
			deps.close(log)
			return nil, err
		}
		deps.producer = p
		deps.kafka = kafka.NewHealthChecker(p.Client())
		log.Info("kafka producer enabled", "topic", cfg.Kafka.Topic)
	} else {
		deps.producer = producer.NoopProducer{}
		log.Warn("KAFKA_BROKERS not set, creation events are not published")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		deps.close(log)
		return nil, err
	}
	deps.redis = rc

	objStore, err := objectstore.New(cfg.ObjectStore)
	if err != nil {
		deps.close(log)
		return nil, err
	}
	if objStore != nil {
		if err := objStore.EnsureBucket(ctx); err != nil {
			log.Warn("object store bucket not ready", "bucket", objStore.Bucket(), "error", err)
		}
		deps.objectStore = objStore
	}

	return deps, nil
}

func buildCertificateService(cfg config.Config, deps *infra, log *slog.Logger) *certservice.Service {
	var st certservice.Store = store.NewInMemory()
	if deps.db != nil {
		st = store.NewPostgres(deps.db.DB())
	}

	breaker := circuit.New("certificate-events",
		circuit.WithFailureThreshold(cfg.Pipeline.NotifyFailureThreshold),
		circuit.WithCooldown(cfg.Pipeline.NotifyCooldown),
	)
	events := notifier.New(deps.producer, cfg.Kafka.Topic,
		notifier.WithLogger(log),
		notifier.WithBreaker(breaker),
	)

	opts := []certservice.Option{
		certservice.WithLogger(log),
		certservice.WithMetrics(certmetrics.New()),
		certservice.WithTracer(tracer.NewOTel()),
		certservice.WithPublisher(events),
		certservice.WithNotifyTimeout(cfg.Pipeline.NotifyTimeout),
	}
	if deps.redis != nil {
		opts = append(opts, certservice.WithDocumentCache(cache.New(deps.redis, render.Version, cfg.Redis.DocumentTTL)))
	}

	return certservice.New(normalizer.New(), render.New(), st, opts...)
}

func registerHealthChecks(h *health.Handler, deps *infra) {
	if deps.db != nil {
		h.RegisterCheck("database", deps.db.Health)
	}
	if deps.kafka != nil {
		h.RegisterCheck(deps.kafka.Name(), deps.kafka.Check)
	}
	if deps.redis != nil {
		h.RegisterCheck("redis", deps.redis.Health)
	}
	if deps.objectStore != nil {
		h.RegisterCheck("object_store", deps.objectStore.Health)
	}
}

// storageOrNil keeps a nil client from becoming a non-nil interface.
func storageOrNil(c *objectstore.Client) uploadservice.Storage {
	if c == nil {
		return nil
	}
	return c
}

func (d *infra) close(log *slog.Logger) {
	if d.producer != nil {
		if err := d.producer.Close(); err != nil {
			log.Warn("failed to close kafka producer", "error", err)
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Warn("failed to close redis client", "error", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Warn("failed to close database pool", "error", err)
		}
	}
}
