package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chartengine/config"
	"chartengine/internal/auth"
	"chartengine/internal/gateway"
	"chartengine/internal/logger"
	"chartengine/internal/metrics"
	rediscache "chartengine/internal/store/redis"
	"chartengine/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	slg := logger.Init("chartserver", slog.LevelInfo)
	slg.Info("starting", "listen", cfg.ListenAddr, "metrics", cfg.MetricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics()

	// SQLite bar store (also holds symbols and API keys)
	store, err := sqlite.Open(sqlite.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[chartserver] sqlite open failed: %v", err)
	}
	defer store.Close()

	// Redis indicator cache behind a circuit breaker. Redis being down is
	// not fatal: the cache degrades to a permanent miss.
	breaker := rediscache.NewCircuitBreaker(5, 30*time.Second)
	breaker.OnStateChange = func(from, to rediscache.State) {
		slg.Warn("cache breaker state change", "from", from.String(), "to", to.String())
		m.CacheBreakerState.Set(float64(to))
		if to == rediscache.StateOpen {
			m.CacheBreakerTrips.Inc()
		}
	}
	cache := rediscache.NewCache(rediscache.CacheConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		TTL:      cfg.CacheTTL,
	}, breaker)
	defer cache.Close()

	keys := auth.NewKeyStore(store.DB())
	keys.OnReject = m.AuthRejected.Inc

	limiter := auth.NewRateLimiter(cfg.RateLimitPerMin)
	limiter.OnReject = m.RateLimitRejected.Inc

	hub := gateway.NewHub(m)

	gw := &gateway.Gateway{
		Cfg:     cfg,
		Store:   store,
		Cache:   cache,
		Hub:     hub,
		Metrics: m,
		Keys:    keys,
		Limiter: limiter,
	}

	mux := http.NewServeMux()
	gw.RegisterRoutes(mux)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	// Prometheus + health on a separate listener
	health := metrics.NewHealthStatus()
	go health.StartLivenessChecker(ctx, cache.Client(), store.DB(), 15*time.Second)
	msrv := metrics.NewServer(cfg.MetricsAddr, health)
	msrv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slg.Info("serving", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[chartserver] server error: %v", err)
		}
	}()

	<-sigCh
	slg.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	msrv.Stop(shutdownCtx)
}
