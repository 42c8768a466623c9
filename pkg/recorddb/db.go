// Package recorddb opens and manages the GORM database connection used by
// record stores. It supports PostgreSQL for deployments and a pure-Go SQLite
// driver for embedded use and tests. Pooling and transactions belong to the
// ORM and driver; this package only configures and observes them.
package recorddb

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Driver names accepted by Config.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds database connection configuration.
type Config struct {
	Driver   string          // "postgres" or "sqlite"
	DSN      string          // postgres DSN, or sqlite file path
	MaxConns int             // maximum open connections (default 10 postgres, 4 sqlite)
	LogLevel logger.LogLevel // GORM log level (logger.Silent for production)
}

// DB wraps the GORM handle together with the raw *sql.DB and health state.
type DB struct {
	healthCacheTime time.Time
	DB              *gorm.DB
	sqlDB           *sql.DB
	metrics         *PoolMetrics
	cachedHealth    *HealthInfo
	healthCacheTTL  time.Duration
	healthCacheMu   sync.RWMutex
}

// Open connects to the configured database and prepares the connection pool.
func Open(cfg Config) (*DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(cfg.LogLevel),
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		if cfg.Driver == DriverSQLite {
			maxConns = 4
		} else {
			maxConns = 10
		}
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns / 2)
	if cfg.Driver == DriverPostgres {
		// PostgreSQL connections are expensive; recycle them.
		sqlDB.SetConnMaxLifetime(1 * time.Hour)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	d := &DB{
		DB:             db,
		sqlDB:          sqlDB,
		metrics:        NewPoolMetrics(100),
		healthCacheTTL: 5 * time.Second,
	}

	if cfg.Driver == DriverPostgres {
		d.WarmPool(maxConns / 2)
	}

	return d, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case DriverSQLite, "":
		sep := "?"
		if strings.Contains(cfg.DSN, "?") {
			sep = "&"
		}
		dsn := cfg.DSN + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// WarmPool pre-creates connections to avoid cold start latency.
func (d *DB) WarmPool(numConns int) {
	if numConns <= 0 {
		numConns = 4
	}

	var wg sync.WaitGroup
	for i := 0; i < numConns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			conn, err := d.sqlDB.Conn(ctx)
			if err != nil {
				return
			}
			_ = conn.PingContext(ctx)
			// Return connection to pool (don't close it)
			_ = conn.Close()
		}()
	}
	wg.Wait()
	log.Debug().Int("connections", numConns).Msg("Connection pool warmed")
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sqlDB.Close()
}

// Ping verifies the database connection is alive.
func (d *DB) Ping() error {
	return d.sqlDB.Ping()
}

// Gorm returns the GORM handle for building stores and queries.
func (d *DB) Gorm() *gorm.DB {
	return d.DB
}

// Raw returns the underlying *sql.DB for operations GORM can't express.
func (d *DB) Raw() *sql.DB {
	return d.sqlDB
}

// Stats returns database connection pool statistics.
func (d *DB) Stats() sql.DBStats {
	return d.sqlDB.Stats()
}

// QueryTimeout constants for different query types.
const (
	// DefaultQueryTimeout is the default timeout for regular queries.
	DefaultQueryTimeout = 5 * time.Second
	// FastQueryTimeout is for queries that should be very fast (health checks, etc).
	FastQueryTimeout = 1 * time.Second
	// SlowQueryTimeout is for queries that may take longer (bulk operations).
	SlowQueryTimeout = 30 * time.Second
)

// WithTimeout wraps a context with the given timeout and logs slow operations
// on cancel. The returned cancel must be called when the operation finishes.
func (d *DB) WithTimeout(ctx context.Context, timeout time.Duration, operation string) (context.Context, context.CancelFunc) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	start := time.Now()

	return timeoutCtx, func() {
		elapsed := time.Since(start)
		cancel()

		if elapsed > 100*time.Millisecond {
			log.Warn().
				Str("operation", operation).
				Dur("elapsed", elapsed).
				Dur("timeout", timeout).
				Msg("Slow database operation")
		}
	}
}

// HealthCheck performs a health check with latency measurement. Results are
// cached for a few seconds so monitoring endpoints don't hammer the database.
func (d *DB) HealthCheck(ctx context.Context) *HealthInfo {
	d.healthCacheMu.RLock()
	if d.cachedHealth != nil && time.Since(d.healthCacheTime) < d.healthCacheTTL {
		cached := d.cachedHealth
		d.healthCacheMu.RUnlock()
		return cached
	}
	d.healthCacheMu.RUnlock()

	info := d.performHealthCheck(ctx)

	d.healthCacheMu.Lock()
	d.cachedHealth = info
	d.healthCacheTime = time.Now()
	d.healthCacheMu.Unlock()

	return info
}

func (d *DB) performHealthCheck(ctx context.Context) *HealthInfo {
	info := &HealthInfo{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	stats := d.sqlDB.Stats()
	info.PoolStats = PoolStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration,
	}

	start := time.Now()
	var dummy int
	err := d.sqlDB.QueryRowContext(ctx, "SELECT 1").Scan(&dummy)
	info.QueryLatency = time.Since(start)

	if d.metrics != nil {
		d.metrics.RecordLatency(info.QueryLatency)
		info.Latency = d.metrics.Summary()
	}

	if err != nil {
		info.Status = "unhealthy"
		info.Error = err.Error()
		return info
	}

	if stats.InUse > 0 && float64(stats.InUse)/float64(stats.OpenConnections) > 0.8 {
		info.Status = "degraded"
		info.Warning = "Connection pool heavily utilized"
	}

	if info.QueryLatency > 10*time.Millisecond {
		if info.Status == "healthy" {
			info.Status = "degraded"
		}
		info.Warning = fmt.Sprintf("Slow query latency: %v", info.QueryLatency)
	}

	return info
}

// HealthInfo contains database health check results.
type HealthInfo struct {
	Timestamp    time.Time      `json:"timestamp"`
	Status       string         `json:"status"`
	Error        string         `json:"error,omitempty"`
	Warning      string         `json:"warning,omitempty"`
	Latency      LatencySummary `json:"latency,omitempty"`
	PoolStats    PoolStats      `json:"pool_stats"`
	QueryLatency time.Duration  `json:"query_latency_ns"`
}

// PoolStats contains connection pool statistics.
type PoolStats struct {
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration_ns"`
}

// PoolMetrics tracks query latency over a sliding window of samples.
type PoolMetrics struct {
	latencySamples []time.Duration
	latencyIdx     int
	latencyCount   int
	totalQueries   int64
	windowSize     int
	mu             sync.RWMutex
}

// NewPoolMetrics creates a latency tracker keeping the last windowSize samples.
func NewPoolMetrics(windowSize int) *PoolMetrics {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &PoolMetrics{
		latencySamples: make([]time.Duration, windowSize),
		windowSize:     windowSize,
	}
}

// RecordLatency records a query latency sample.
func (m *PoolMetrics) RecordLatency(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latencySamples[m.latencyIdx] = latency
	m.latencyIdx = (m.latencyIdx + 1) % m.windowSize
	if m.latencyCount < m.windowSize {
		m.latencyCount++
	}
	m.totalQueries++
}

// Summary returns aggregated latency statistics over the window.
func (m *PoolMetrics) Summary() LatencySummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := LatencySummary{
		TotalQueries: m.totalQueries,
		SampleCount:  m.latencyCount,
	}
	if m.latencyCount == 0 {
		return summary
	}

	var total time.Duration
	minL, maxL := m.latencySamples[0], m.latencySamples[0]
	for i := 0; i < m.latencyCount; i++ {
		sample := m.latencySamples[i]
		total += sample
		if sample < minL {
			minL = sample
		}
		if sample > maxL {
			maxL = sample
		}
	}

	summary.AvgLatency = total / time.Duration(m.latencyCount)
	summary.MinLatency = minL
	summary.MaxLatency = maxL

	if m.latencyCount >= 20 {
		samples := make([]time.Duration, m.latencyCount)
		copy(samples, m.latencySamples[:m.latencyCount])
		slices.Sort(samples)
		summary.P95Latency = samples[int(float64(len(samples))*0.95)]
	}

	return summary
}

// LatencySummary contains aggregated query latency metrics.
type LatencySummary struct {
	TotalQueries int64         `json:"total_queries"`
	SampleCount  int           `json:"sample_count"`
	AvgLatency   time.Duration `json:"avg_latency_ns"`
	MinLatency   time.Duration `json:"min_latency_ns"`
	MaxLatency   time.Duration `json:"max_latency_ns"`
	P95Latency   time.Duration `json:"p95_latency_ns,omitempty"`
}
