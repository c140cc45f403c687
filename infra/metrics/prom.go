package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/gridopt/stochuc/core/metrics"
)

// PromSink records decomposition progress in Prometheus metrics.
type PromSink struct {
	iterations *prometheus.CounterVec
	gap        *prometheus.GaugeVec
	runtime    *prometheus.HistogramVec
	converged  *prometheus.CounterVec
}

// NewPromSink registers solver metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	iterations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lshaped_iterations_total",
		Help: "Total number of decomposition iterations",
	}, []string{"price"})
	gap := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lshaped_bound_gap",
		Help: "Current gap between upper and lower bound",
	}, []string{"price"})
	runtime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lshaped_run_duration_seconds",
		Help:    "Wall time per price point run",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"price", "converged"})
	converged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lshaped_runs_total",
		Help: "Total number of finished price point runs",
	}, []string{"price", "converged"})

	if err := register(reg, &iterations); err != nil {
		return nil, err
	}
	if err := registerGauge(reg, &gap); err != nil {
		return nil, err
	}
	if err := registerHist(reg, &runtime); err != nil {
		return nil, err
	}
	if err := register(reg, &converged); err != nil {
		return nil, err
	}

	return &PromSink{iterations: iterations, gap: gap, runtime: runtime, converged: converged}, nil
}

func register(reg prometheus.Registerer, c **prometheus.CounterVec) error {
	if err := reg.Register(*c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*c = are.ExistingCollector.(*prometheus.CounterVec)
			return nil
		}
		return err
	}
	return nil
}

func registerGauge(reg prometheus.Registerer, g **prometheus.GaugeVec) error {
	if err := reg.Register(*g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*g = are.ExistingCollector.(*prometheus.GaugeVec)
			return nil
		}
		return err
	}
	return nil
}

func registerHist(reg prometheus.Registerer, h **prometheus.HistogramVec) error {
	if err := reg.Register(*h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*h = are.ExistingCollector.(*prometheus.HistogramVec)
			return nil
		}
		return err
	}
	return nil
}

func priceLabel(price float64) string { return fmt.Sprintf("%.4f", price) }

// RecordIteration updates the iteration counter and bound gap gauge.
func (s *PromSink) RecordIteration(stat coremetrics.IterationStat) error {
	s.iterations.WithLabelValues(priceLabel(stat.RealTimePrice)).Inc()
	s.gap.WithLabelValues(priceLabel(stat.RealTimePrice)).Set(stat.Gap)
	return nil
}

// RecordRun observes the run duration and outcome.
func (s *PromSink) RecordRun(stat coremetrics.RunStat) error {
	conv := fmt.Sprintf("%t", stat.Converged)
	s.runtime.WithLabelValues(priceLabel(stat.RealTimePrice), conv).Observe(stat.Duration.Seconds())
	s.converged.WithLabelValues(priceLabel(stat.RealTimePrice), conv).Inc()
	return nil
}
