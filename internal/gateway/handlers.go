package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chartengine/config"
	"chartengine/internal/auth"
	"chartengine/internal/downsample"
	"chartengine/internal/indicator"
	"chartengine/internal/markethours"
	"chartengine/internal/metrics"
	"chartengine/internal/model"
	"chartengine/internal/resample"
	rediscache "chartengine/internal/store/redis"
	"chartengine/internal/store/sqlite"
	"chartengine/internal/symbols"
)

// Gateway wires the HTTP surface to the transformation engine and its
// backing stores.
type Gateway struct {
	Cfg     *config.Config
	Store   *sqlite.Store
	Cache   *rediscache.Cache
	Hub     *Hub
	Metrics *metrics.Metrics
	Keys    *auth.KeyStore
	Limiter *auth.RateLimiter
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, Authorization")
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/downsample", g.route("downsample", g.handleDownsample))
	mux.HandleFunc("/api/v1/indicators/", g.route("indicator_compute", g.handleIndicatorCompute))
	mux.HandleFunc("/api/v1/indicators", g.route("indicator_query", g.handleIndicatorQuery))
	mux.HandleFunc("/api/v1/bars", g.route("bars", g.handleBars))
	mux.HandleFunc("/api/v1/symbols", g.route("symbols", g.handleSymbols))
	mux.HandleFunc("/api/v1/market/status", g.route("market_status", g.handleMarketStatus))

	if g.Cfg.AdminTOTPSecret != "" {
		mux.HandleFunc("/api/v1/admin/keys", g.route("admin_keys", g.handleAdminKeys))
	}

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		g.Hub.HandleWS(conn, r.URL.Query().Get("symbols"))
	})
}

// route wraps a handler with CORS, preflight handling, rate limiting and
// the per-route request counter.
func (g *Gateway) route(name string, h http.HandlerFunc) http.HandlerFunc {
	if g.Limiter != nil {
		h = g.Limiter.Middleware(h)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if g.Metrics != nil {
			g.Metrics.RequestsTotal.WithLabelValues(name).Inc()
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodeOrEmpty decodes a transformation request body. A malformed body is
// not a fault: the caller gets an HTTP 200 empty result, mirroring what the
// pure functions return for unusable input.
func (g *Gateway) decodeOrEmpty(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if g.Metrics != nil {
			g.Metrics.DecodeFailures.Inc()
		}
		writeJSON(w, http.StatusOK, []struct{}{})
		return false
	}
	return true
}

// ────────────────────────────────────────────
// Stateless transformation endpoints
// ────────────────────────────────────────────

// handleDownsample serves POST /api/v1/downsample.
func (g *Gateway) handleDownsample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req DownsampleRequest
	if !g.decodeOrEmpty(w, r, &req) {
		return
	}

	start := time.Now()
	out := downsample.Downsample(req.Samples, req.Threshold)
	if g.Metrics != nil {
		g.Metrics.ObserveCompute("downsample", start, len(out))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleIndicatorCompute serves POST /api/v1/indicators/{sma,ema,rsi,vwap}.
func (g *Gateway) handleIndicatorCompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	kind := strings.TrimPrefix(r.URL.Path, "/api/v1/indicators/")

	var req IndicatorRequest
	if !g.decodeOrEmpty(w, r, &req) {
		return
	}

	opts := g.vwapOptions(req.ResetOnGap, req.GapThreshold)
	start := time.Now()
	out, ok := indicator.Compute(kind, req.Bars, req.Period, opts)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown indicator: "+kind)
		return
	}
	if g.Metrics != nil {
		g.Metrics.ObserveCompute(kind, start, len(out))
	}
	writeJSON(w, http.StatusOK, out)
}

// vwapOptions merges per-request VWAP overrides with configured defaults.
func (g *Gateway) vwapOptions(resetOnGap *bool, gapThreshold *float64) indicator.VWAPOptions {
	opts := indicator.VWAPOptions{
		ResetOnGap:   g.Cfg.VWAPResetOnGap,
		GapThreshold: g.Cfg.VWAPGapThreshold,
	}
	if resetOnGap != nil {
		opts.ResetOnGap = *resetOnGap
	}
	if gapThreshold != nil {
		opts.GapThreshold = *gapThreshold
	}
	return opts
}

// ────────────────────────────────────────────
// Stored-bar endpoints
// ────────────────────────────────────────────

// handleBars serves GET /api/v1/bars (query) and POST /api/v1/bars (ingest).
func (g *Gateway) handleBars(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.handleBarsQuery(w, r)
	case http.MethodPost:
		g.Keys.RequireAPIKey(g.handleBarsIngest)(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or POST required")
	}
}

func (g *Gateway) handleBarsQuery(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	from := queryFloat(r, "from", 0)
	to := queryFloat(r, "to", 0)
	limit := queryInt(r, "limit", 0)
	tf := queryFloat(r, "tf", 0)

	qStart := time.Now()
	bars, err := g.Store.QueryBars(r.Context(), symbol, from, to, limit)
	if err != nil {
		log.Printf("[gateway] bar query failed: symbol=%s err=%v", symbol, err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if g.Metrics != nil {
		g.Metrics.SQLiteQueryDur.Observe(time.Since(qStart).Seconds())
	}

	if tf > 0 {
		start := time.Now()
		bars = resample.Resample(bars, tf)
		if g.Metrics != nil {
			g.Metrics.ObserveCompute("resample", start, len(bars))
		}
	}
	writeJSON(w, http.StatusOK, bars)
}

func (g *Gateway) handleBarsIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Symbol == "" || len(req.Bars) == 0 {
		writeError(w, http.StatusBadRequest, "symbol and bars are required")
		return
	}

	dur, err := g.Store.UpsertBars(req.Symbol, req.Bars)
	if err != nil {
		log.Printf("[gateway] ingest failed: symbol=%s err=%v", req.Symbol, err)
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	if req.Name != "" {
		g.Store.UpsertSymbol(model.SymbolEntry{Symbol: req.Symbol, Name: req.Name})
	}

	if g.Metrics != nil {
		g.Metrics.BarsIngested.Add(float64(len(req.Bars)))
		g.Metrics.SQLiteCommitDur.Observe(dur.Seconds())
	}

	// Stored bars invalidate every cached series for the symbol.
	if g.Cache != nil {
		g.Cache.InvalidateSymbol(r.Context(), req.Symbol)
	}
	if g.Hub != nil {
		g.Hub.BroadcastBars(req.Symbol, req.Bars)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"ingested": len(req.Bars),
	})
}

// handleIndicatorQuery serves GET /api/v1/indicators: compute an indicator
// over stored bars, with a Redis-backed result cache.
func (g *Gateway) handleIndicatorQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	q := r.URL.Query()
	symbol := q.Get("symbol")
	kind := q.Get("kind")
	if symbol == "" || kind == "" {
		writeError(w, http.StatusBadRequest, "symbol and kind are required")
		return
	}
	period := queryInt(r, "period", 14)
	tf := queryFloat(r, "tf", 0)
	threshold := queryInt(r, "threshold", 0)

	cacheKey := rediscache.Key(symbol, kind, period, tf, threshold)
	if g.Cache != nil {
		if points, ok := g.Cache.Get(r.Context(), cacheKey); ok {
			if g.Metrics != nil {
				g.Metrics.CacheHits.Inc()
			}
			writeJSON(w, http.StatusOK, points)
			return
		}
		if g.Metrics != nil {
			g.Metrics.CacheMisses.Inc()
		}
	}

	bars, err := g.Store.QueryBars(r.Context(), symbol, 0, 0, 0)
	if err != nil {
		log.Printf("[gateway] bar query failed: symbol=%s err=%v", symbol, err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if tf > 0 {
		bars = resample.Resample(bars, tf)
	}

	start := time.Now()
	points, ok := indicator.Compute(kind, bars, period, g.vwapOptions(nil, nil))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown indicator: "+kind)
		return
	}
	if threshold > 0 {
		points = downsamplePoints(points, threshold)
	}
	if g.Metrics != nil {
		g.Metrics.ObserveCompute(kind, start, len(points))
	}

	if g.Cache != nil {
		g.Cache.Set(r.Context(), cacheKey, points)
	}
	writeJSON(w, http.StatusOK, points)
}

// downsamplePoints applies LTTB to an indicator series.
func downsamplePoints(points []model.IndicatorPoint, threshold int) []model.IndicatorPoint {
	samples := make([]model.Sample, len(points))
	for i, p := range points {
		samples[i] = model.Sample{TS: p.TS, Value: p.Value}
	}
	reduced := downsample.Downsample(samples, threshold)
	out := make([]model.IndicatorPoint, len(reduced))
	for i, s := range reduced {
		out[i] = model.IndicatorPoint{TS: s.TS, Value: s.Value}
	}
	return out
}

// ────────────────────────────────────────────
// Symbols / market status / admin
// ────────────────────────────────────────────

// handleSymbols serves GET /api/v1/symbols?q=...
func (g *Gateway) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	entries, err := g.Store.ListSymbols(r.Context())
	if err != nil {
		log.Printf("[gateway] symbol list failed: %v", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	limit := queryInt(r, "limit", g.Cfg.SearchMaxResults)
	if limit <= 0 || limit > g.Cfg.SearchMaxResults {
		limit = g.Cfg.SearchMaxResults
	}
	writeJSON(w, http.StatusOK, symbols.Search(entries, r.URL.Query().Get("q"), limit))
}

func (g *Gateway) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, markethours.GetStatus(time.Now()))
}

// handleAdminKeys serves POST /api/v1/admin/keys: issue a new API key,
// gated by a TOTP code against the configured admin secret.
func (g *Gateway) handleAdminKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !auth.VerifyTOTP(g.Cfg.AdminTOTPSecret, req.Code) {
		if g.Metrics != nil {
			g.Metrics.AuthRejected.Inc()
		}
		writeError(w, http.StatusUnauthorized, "invalid TOTP code")
		return
	}

	var expiresAt time.Time
	if req.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
	}
	key, err := g.Keys.Generate(req.Label, expiresAt)
	if err != nil {
		log.Printf("[gateway] key generation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "key generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "label": req.Label})
}

// ────────────────────────────────────────────
// Query helpers
// ────────────────────────────────────────────

func queryFloat(r *http.Request, name string, def float64) float64 {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return def
}

func queryInt(r *http.Request, name string, def int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}
