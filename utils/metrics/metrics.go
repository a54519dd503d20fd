package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

// ArbitratorMetrics instruments the polling cycle
type ArbitratorMetrics struct {
	Cycles             prometheus.Counter
	CycleDuration      prometheus.Histogram
	GasPrice           prometheus.Gauge
	Opportunities      prometheus.Counter
	EvaluationFailures *prometheus.CounterVec
	Executions         *prometheus.CounterVec
	ReceiptPolls       prometheus.Counter
	DisabledRoutes     prometheus.Gauge
}

// NewArbitratorMetrics registers the cycle metrics on reg
func NewArbitratorMetrics(reg prometheus.Registerer, namespace string) *ArbitratorMetrics {
	factory := promauto.With(reg)
	return &ArbitratorMetrics{
		Cycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of completed polling cycles",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time taken by a polling cycle including execution and confirmation",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		GasPrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gas_price_wei",
			Help:      "Gas price used by the latest cycle",
		}),
		Opportunities: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Total number of routes that qualified for execution",
		}),
		EvaluationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_failures_total",
			Help:      "Route evaluations that failed, by route",
		}, []string{"route"}),
		Executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Arbitration transactions confirmed, by route and receipt status",
		}, []string{"route", "status"}),
		ReceiptPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_polls_total",
			Help:      "Total number of transaction receipt queries",
		}),
		DisabledRoutes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "disabled_routes",
			Help:      "Routes disabled by startup gas estimation",
		}),
	}
}

// CounterValue reads the current value of a counter
func CounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil || m.Counter == nil {
		return 0
	}
	return m.Counter.GetValue()
}

// Serve exposes /metrics and /healthz on addr until ctx is done
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) {
	if addr == "" {
		logger.Info("Metrics disabled: empty listen address")
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		logger.Info("Metrics server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown error", zap.Error(err))
		}
	}()
}
