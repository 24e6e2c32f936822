// Package http serves the media reference API, health endpoints and
// Prometheus metrics.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mediaref/internal/core"
	"mediaref/internal/flood"
	"mediaref/internal/session"
)

type Server struct {
	config   *core.ServerConfig
	logger   *zap.Logger
	engine   *core.Orchestrator
	store    core.ContentStore
	sessions session.Lookup
	gate     *flood.Floodgate
	server   *http.Server
	metrics  *Metrics
}

type Metrics struct {
	registry *prometheus.Registry

	ValidationsTotal *prometheus.CounterVec
	DetectionsTotal  *prometheus.CounterVec
	StaleDropsTotal  prometheus.Counter
	EnrichmentsTotal *prometheus.CounterVec
	EnrichmentTime   prometheus.Histogram
	RateLimitedTotal prometheus.Counter
	ActiveItems      prometheus.Gauge
}

// NewMetrics builds the server's metric set on a private registry. Metrics
// implements core.MetricsRecorder so the detection engine can be wired to it
// before the server exists.
func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		ValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediaref_validations_total",
				Help: "Total number of synchronous URL classification passes",
			},
			[]string{"platform", "valid"},
		),
		DetectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediaref_detections_total",
				Help: "Total number of completed extraction requests",
			},
			[]string{"platform", "status"},
		),
		StaleDropsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mediaref_stale_results_total",
				Help: "Total number of superseded extraction results dropped",
			},
		),
		EnrichmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediaref_enrichments_total",
				Help: "Total number of metadata enrichment calls",
			},
			[]string{"status"},
		),
		EnrichmentTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mediaref_enrichment_duration_seconds",
				Help:    "Time spent on metadata enrichment calls",
				Buckets: prometheus.DefBuckets,
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mediaref_rate_limited_total",
				Help: "Total number of requests rejected by the rate gate",
			},
		),
		ActiveItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediaref_active_items",
				Help: "Number of content items with detection state",
			},
		),
	}

	metrics.registry.MustRegister(
		metrics.ValidationsTotal,
		metrics.DetectionsTotal,
		metrics.StaleDropsTotal,
		metrics.EnrichmentsTotal,
		metrics.EnrichmentTime,
		metrics.RateLimitedTotal,
		metrics.ActiveItems,
	)

	return metrics
}

func NewServer(
	config *core.ServerConfig,
	engine *core.Orchestrator,
	store core.ContentStore,
	sessions session.Lookup,
	gate *flood.Floodgate,
	metrics *Metrics,
	logger *zap.Logger,
) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	s := &Server{
		config:   config,
		logger:   logger,
		engine:   engine,
		store:    store,
		sessions: sessions,
		gate:     gate,
		metrics:  metrics,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/validate", s.rateLimited(s.handleValidate))
	mux.HandleFunc("POST /api/items/{id}/url", s.rateLimited(s.handleItemURL))
	mux.HandleFunc("GET /api/items/{id}", s.handleItemGet)
	mux.HandleFunc("DELETE /api/items/{id}", s.handleItemDelete)
	mux.HandleFunc("POST /api/items/{id}/window/start", s.handleWindowStart)
	mux.HandleFunc("POST /api/items/{id}/window/end", s.handleWindowEnd)
	mux.HandleFunc("POST /api/items/{id}/window/apply", s.handleWindowApply)
	mux.HandleFunc("POST /api/items/{id}/window/clear", s.handleWindowClear)

	mux.HandleFunc("POST /api/content", s.authenticated(s.handleContentCreate))
	mux.HandleFunc("GET /api/content", s.authenticated(s.handleContentList))
	mux.HandleFunc("GET /api/content/{id}", s.authenticated(s.handleContentGet))

	mux.HandleFunc("GET /debug/ratelimit", s.handleRateLimitStats)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"mediaref"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"mediaref"}`))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// RecordValidation implements core.MetricsRecorder.
func (m *Metrics) RecordValidation(platform string, valid bool) {
	m.ValidationsTotal.WithLabelValues(platform, fmt.Sprintf("%t", valid)).Inc()
}

// RecordDetection implements core.MetricsRecorder.
func (m *Metrics) RecordDetection(platform, status string) {
	m.DetectionsTotal.WithLabelValues(platform, status).Inc()
}

// RecordStaleDrop implements core.MetricsRecorder.
func (m *Metrics) RecordStaleDrop() {
	m.StaleDropsTotal.Inc()
}

// SetActiveItems implements core.MetricsRecorder.
func (m *Metrics) SetActiveItems(count int) {
	m.ActiveItems.Set(float64(count))
}

// RecordEnrichment observes one metadata enrichment attempt.
func (m *Metrics) RecordEnrichment(status string, elapsed time.Duration) {
	m.EnrichmentsTotal.WithLabelValues(status).Inc()
	m.EnrichmentTime.Observe(elapsed.Seconds())
}
