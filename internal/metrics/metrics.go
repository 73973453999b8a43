package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the chart engine.
type Metrics struct {
	RequestsTotal  *prometheus.CounterVec // labels: route
	DecodeFailures prometheus.Counter     // malformed request bodies, served as empty results

	// Numeric core
	ComputeDur  *prometheus.HistogramVec // labels: op (downsample|sma|ema|rsi|vwap|resample)
	PointsTotal *prometheus.CounterVec   // points produced per op

	// Redis result cache
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	CacheBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	CacheBreakerTrips prometheus.Counter

	// Store + ingest
	SQLiteQueryDur  prometheus.Histogram
	SQLiteCommitDur prometheus.Histogram
	BarsIngested    prometheus.Counter

	// WebSocket stream
	WSClients    prometheus.Gauge
	WSDropped    prometheus.Counter // messages dropped on slow clients
	WSBroadcasts prometheus.Counter

	// Auth
	AuthRejected      prometheus.Counter
	RateLimitRejected prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartengine_requests_total",
			Help: "Total HTTP requests served (by route)",
		}, []string{"route"}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_decode_failures_total",
			Help: "Request bodies that failed to decode and were served as empty results",
		}),

		ComputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chartengine_compute_duration_seconds",
			Help:    "Numeric core compute latency per call (by operation)",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"op"}),
		PointsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartengine_points_total",
			Help: "Total output points produced (by operation)",
		}, []string{"op"}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_cache_hits_total",
			Help: "Indicator cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_cache_misses_total",
			Help: "Indicator cache misses",
		}),
		CacheBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartengine_cache_breaker_state",
			Help: "Redis cache circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CacheBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_cache_breaker_trips_total",
			Help: "Times the Redis cache circuit breaker has opened",
		}),

		SQLiteQueryDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartengine_sqlite_query_duration_seconds",
			Help:    "SQLite bar range-query latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartengine_sqlite_commit_duration_seconds",
			Help:    "SQLite batch upsert latency",
			Buckets: prometheus.DefBuckets,
		}),
		BarsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_bars_ingested_total",
			Help: "Price bars accepted through the ingest endpoint",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartengine_ws_clients",
			Help: "Currently connected WebSocket clients",
		}),
		WSDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_ws_dropped_total",
			Help: "Stream messages dropped on slow WebSocket clients",
		}),
		WSBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_ws_broadcasts_total",
			Help: "Stream messages broadcast to WebSocket clients",
		}),

		AuthRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_auth_rejected_total",
			Help: "Requests rejected for missing or invalid API keys",
		}),
		RateLimitRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartengine_rate_limit_rejected_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}

	prometheus.MustRegister(
		m.RequestsTotal, m.DecodeFailures,
		m.ComputeDur, m.PointsTotal,
		m.CacheHits, m.CacheMisses, m.CacheBreakerState, m.CacheBreakerTrips,
		m.SQLiteQueryDur, m.SQLiteCommitDur, m.BarsIngested,
		m.WSClients, m.WSDropped, m.WSBroadcasts,
		m.AuthRejected, m.RateLimitRejected,
	)

	return m
}

// ObserveCompute times one numeric core call and records its output size.
func (m *Metrics) ObserveCompute(op string, start time.Time, points int) {
	m.ComputeDur.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.PointsTotal.WithLabelValues(op).Add(float64(points))
}

// HealthStatus tracks dependency health for the /healthz endpoint.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool
	SQLiteOK       bool

	RedisLatencyMs  float64
	SQLiteLatencyMs float64
	LastCheckAt     time.Time
	StartedAt       time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if rdb != nil {
			h.CheckRedis(probeCtx, rdb)
		}
		if sqlDB != nil {
			h.CheckSQLite(probeCtx, sqlDB)
		}
	}

	go func() {
		probe()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
//
// The numeric core has no dependencies, so a dead Redis only degrades the
// service (cache misses everywhere); SQLite being down removes the
// by-symbol endpoints but inline compute still works.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
	}
	if !h.SQLiteOK {
		httpCode = http.StatusServiceUnavailable
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
