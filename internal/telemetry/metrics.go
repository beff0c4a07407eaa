package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics are the process counters exported for scraping.
type Metrics struct {
	TicksApplied  prometheus.Counter
	TicksRejected prometheus.Counter
	StopLosses    prometheus.Counter
	RiskyCount    prometheus.Gauge
	CycleLatency  prometheus.Histogram

	registry *prometheus.Registry
}

// New creates and registers the metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		TicksApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risksentinel_ticks_applied_total",
			Help: "Ticks applied to the history store.",
		}),
		TicksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risksentinel_ticks_rejected_total",
			Help: "Ticks rejected as invalid input.",
		}),
		StopLosses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risksentinel_stop_loss_total",
			Help: "Stop-loss commands acknowledged.",
		}),
		RiskyCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "risksentinel_risky_instruments",
			Help: "Instruments flagged risky in the latest cycle.",
		}),
		CycleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "risksentinel_cycle_seconds",
			Help:    "Time spent applying a tick and recomputing metrics and suggestions.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.TicksApplied, m.TicksRejected, m.StopLosses, m.RiskyCount, m.CycleLatency)
	return m
}

// Gatherer exposes the registry for scraping or tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
