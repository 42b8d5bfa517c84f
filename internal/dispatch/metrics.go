package dispatch

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/automail/automail/internal/model"
)

// Metrics records dispatch activity as Prometheus collectors
type Metrics struct {
	sends       *prometheus.CounterVec
	runs        prometheus.Counter
	runDuration prometheus.Histogram
	inFlight    prometheus.Gauge
}

// NewMetrics creates the dispatch collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "automail",
			Subsystem: "dispatch",
			Name:      "sends_total",
			Help:      "Recipients resolved, by terminal status",
		}, []string{"status"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "automail",
			Subsystem: "dispatch",
			Name:      "runs_total",
			Help:      "Completed dispatch runs",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "automail",
			Subsystem: "dispatch",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a dispatch run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "automail",
			Subsystem: "dispatch",
			Name:      "sending",
			Help:      "1 while a send call is outstanding",
		}),
	}

	var err error
	if m.sends, err = register(reg, m.sends); err != nil {
		return nil, err
	}
	if m.runs, err = register(reg, m.runs); err != nil {
		return nil, err
	}
	if m.runDuration, err = register(reg, m.runDuration); err != nil {
		return nil, err
	}
	if m.inFlight, err = register(reg, m.inFlight); err != nil {
		return nil, err
	}
	return m, nil
}

// OnStatus implements Observer
func (m *Metrics) OnStatus(_ string, s model.SendStatus) {
	switch s.Status {
	case model.StatusSending:
		m.inFlight.Set(1)
	case model.StatusSuccess, model.StatusError:
		m.inFlight.Set(0)
		m.sends.WithLabelValues(string(s.Status)).Inc()
	}
}

// OnComplete implements Observer
func (m *Metrics) OnComplete(summary Summary) {
	m.runs.Inc()
	if !summary.StartedAt.IsZero() && !summary.FinishedAt.IsZero() {
		m.runDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	}
}

// register adds c to reg, reusing an identical collector that is already
// registered
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}
