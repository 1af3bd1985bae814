package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	uploads        *CounterVec
	uploadBytes    *CounterVec
	extractions    *CounterVec
	extractLatency *HistogramVec
	contextCache   *CounterVec
	blobCleanup    *CounterVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	scrapeInterval time.Duration
}

var (
	initMu   sync.Mutex
	instance *Metrics
)

// Current returns the process-wide registry, or nil when metrics are disabled.
// Every method on *Metrics is nil-safe.
func Current() *Metrics {
	initMu.Lock()
	defer initMu.Unlock()
	return instance
}

type MetricsConfig struct {
	Enabled        bool
	ScrapeInterval time.Duration
}

func Init(log *logger.Logger, cfg MetricsConfig) *Metrics {
	initMu.Lock()
	defer initMu.Unlock()
	if !cfg.Enabled {
		instance = nil
		return nil
	}
	if instance != nil {
		return instance
	}
	instance = newMetrics(cfg)
	if log != nil {
		log.Info("metrics enabled", "scrape_interval", instance.scrapeInterval.String())
	}
	return instance
}

func newMetrics(cfg MetricsConfig) *Metrics {
	interval := cfg.ScrapeInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	latency := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	return &Metrics{
		apiRequests: NewCounterVec("cc_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("cc_api_request_duration_seconds", "API request latency in seconds by method/route/status.", []string{"method", "route", "status"}, latency),
		apiInflight: NewGauge("cc_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("cc_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("cc_api_requests_error_total", "API requests answered with a 5xx status."),

		llmRequests: NewCounterVec("cc_llm_requests_total", "Answer engine requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency:  NewHistogramVec("cc_llm_request_duration_seconds", "Answer engine latency in seconds.", []string{"model", "endpoint", "status"}, latency),
		llmTokens:   NewCounterVec("cc_llm_tokens_total", "Answer engine tokens by model/direction.", []string{"model", "direction"}),

		uploads:        NewCounterVec("cc_uploads_total", "Uploads by message kind and outcome.", []string{"kind", "status"}),
		uploadBytes:    NewCounterVec("cc_upload_bytes_total", "Bytes accepted into blob storage by message kind.", []string{"kind"}),
		extractions:    NewCounterVec("cc_extractions_total", "Text extraction attempts by kind/provider/status.", []string{"kind", "provider", "status"}),
		extractLatency: NewHistogramVec("cc_extraction_duration_seconds", "Text extraction latency in seconds.", []string{"kind", "provider"}, latency),
		contextCache:   NewCounterVec("cc_context_cache_total", "Extracted-context cache lookups by result.", []string{"result"}),
		blobCleanup:    NewCounterVec("cc_blob_cleanup_total", "Best-effort blob deletions by outcome.", []string{"status"}),

		dbStats:   NewGaugeVec("cc_db_pool", "database/sql pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("cc_redis_up", "1 when the last redis ping succeeded."),
		redisPing: NewGauge("cc_redis_ping_seconds", "Last redis ping latency in seconds."),

		scrapeInterval: interval,
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.uploads, m.uploadBytes, m.extractions, m.extractLatency, m.contextCache, m.blobCleanup,
		m.dbStats, m.redisUp, m.redisPing,
	}
	for _, p := range all {
		if err := p.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = orDefault(method, "UNKNOWN")
	route = orDefault(route, "unknown")
	status = orDefault(status, "0")
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = orDefault(model, "unknown")
	endpoint = orDefault(endpoint, "unknown")
	status = orDefault(status, "0")
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// ObserveUpload records one upload outcome. status is "ok", "rejected" or "failed".
func (m *Metrics) ObserveUpload(kind, status string, size int64) {
	if m == nil {
		return
	}
	kind = orDefault(kind, "unknown")
	m.uploads.Inc(kind, orDefault(status, "unknown"))
	if status == "ok" && size > 0 {
		m.uploadBytes.Add(float64(size), kind)
	}
}

func (m *Metrics) ObserveExtraction(kind, provider string, ok bool, dur time.Duration) {
	if m == nil {
		return
	}
	kind = orDefault(kind, "unknown")
	provider = orDefault(provider, "unknown")
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.extractions.Inc(kind, provider, status)
	m.extractLatency.Observe(dur.Seconds(), kind, provider)
}

func (m *Metrics) IncContextCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.contextCache.Inc("hit")
		return
	}
	m.contextCache.Inc("miss")
}

func (m *Metrics) IncBlobCleanup(status string) {
	if m == nil {
		return
	}
	m.blobCleanup.Inc(orDefault(status, "unknown"))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings through the caller's client; it does not own or close it.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// StatusLabel renders an HTTP status code for metric labels.
func StatusLabel(code int) string {
	if code <= 0 {
		return "0"
	}
	return strconv.Itoa(code)
}
