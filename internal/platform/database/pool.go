package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"civreg/internal/platform/config"
	"civreg/migrations"
	"civreg/pkg/platform/sentinel"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	poolOpenConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "civreg_db_pool_open_conns",
		Help: "Established connections, in use and idle",
	})
	poolInUseConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "civreg_db_pool_in_use_conns",
		Help: "Connections currently serving a query",
	})
	poolWaitSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "civreg_db_pool_wait_seconds",
		Help: "Cumulative time spent waiting for a free connection",
	})
)

// ErrNotConfigured is returned by a nil Pool's health check.
var ErrNotConfigured = fmt.Errorf("database not configured: %w", sentinel.ErrUnavailable)

// Pool wraps a *sql.DB with health checking capabilities.
type Pool struct {
	db  *sql.DB
	cfg config.Database
}

// New opens and pings a pgx-backed pool. Returns nil, nil if the URL is empty.
func New(ctx context.Context, cfg config.Database) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{db: db, cfg: cfg}, nil
}

// DB returns the underlying *sql.DB for query operations.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Migrate applies the embedded schema.
func (p *Pool) Migrate(ctx context.Context) error {
	if p == nil || p.db == nil {
		return ErrNotConfigured
	}
	return migrations.Apply(ctx, p.db)
}

// Health checks if the database is reachable.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return ErrNotConfigured
	}
	return p.db.PingContext(ctx)
}

// Close closes the database connection pool.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Stats returns database connection pool statistics.
func (p *Pool) Stats() sql.DBStats {
	if p == nil || p.db == nil {
		return sql.DBStats{}
	}
	return p.db.Stats()
}

// RecordPoolStats publishes the current pool statistics.
func (p *Pool) RecordPoolStats() {
	stats := p.Stats()
	poolOpenConns.Set(float64(stats.OpenConnections))
	poolInUseConns.Set(float64(stats.InUse))
	poolWaitSeconds.Set(stats.WaitDuration.Seconds())
}

// RunPoolStats records pool statistics every interval until ctx is done.
func (p *Pool) RunPoolStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RecordPoolStats()
		}
	}
}
