// Package metrics exports pacing statistics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comalice/simpace"
)

// Collector implements simpace.Observer on top of Prometheus metrics.
type Collector struct {
	steps      prometheus.Counter
	violations prometheus.Counter
	overshoot  prometheus.Histogram
	waited     prometheus.Histogram
	target     prometheus.Gauge
	lag        prometheus.Gauge
}

// NewCollector creates the pacing metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simpace_steps_total",
			Help: "Total number of paced steps",
		}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simpace_early_returns_total",
			Help: "Steps that returned before their target elapsed time",
		}),
		overshoot: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simpace_step_overshoot_seconds",
			Help:    "How far past its target a step returned",
			Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2, 5e-2},
		}),
		waited: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simpace_step_wait_seconds",
			Help:    "Wall time spent waiting inside a step",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		target: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simpace_target_elapsed_seconds",
			Help: "Scaled simulated time of the latest step",
		}),
		lag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simpace_step_lag_seconds",
			Help: "Elapsed minus target of the latest step",
		}),
	}

	for _, m := range []prometheus.Collector{c.steps, c.violations, c.overshoot, c.waited, c.target, c.lag} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveStep implements simpace.Observer.
func (c *Collector) ObserveStep(report simpace.StepReport, waited time.Duration) {
	o := report.Overshoot()

	c.steps.Inc()
	if o < 0 {
		c.violations.Inc()
	} else {
		c.overshoot.Observe(o)
	}
	c.waited.Observe(waited.Seconds())
	c.target.Set(report.TargetElapsed)
	c.lag.Set(o)
}

// Handler serves /metrics from gatherer and a trivial /healthz.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}
