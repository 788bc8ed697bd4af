// Package metrics exposes Prometheus collectors for recommendation
// queries and offline build stages.
//
// A nil *Collector is valid and records nothing, so components can take
// one unconditionally.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/gamerec/core"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gamerec"

// Collector holds the registered collectors.
type Collector struct {
	recommendations *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	buildStages     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. Collectors
// already registered by an earlier call are reused.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		return nil, errors.New("metrics: registerer cannot be nil")
	}
	c := &Collector{
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Total recommendation queries by query kind and outcome.",
		}, []string{"kind", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_duration_seconds",
			Help:      "Recommendation query duration in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"kind"}),
		buildStages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_stage_duration_seconds",
			Help:      "Offline build stage duration in seconds.",
			Buckets:   []float64{0.01, 0.1, 1, 5, 15, 60, 300, 900},
		}, []string{"stage"}),
	}
	if err := registerOrReuse(reg, &c.recommendations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &c.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &c.buildStages); err != nil {
		return nil, err
	}
	return c, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("metrics: already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("metrics: register: %w", err)
	}
	return nil
}

// ObserveRecommendation records one finished query.
func (c *Collector) ObserveRecommendation(kind core.QueryKind, reason core.Reason, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.recommendations.WithLabelValues(kind.String(), reason.String()).Inc()
	c.duration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

// ObserveBuildStage records the duration of one build stage.
func (c *Collector) ObserveBuildStage(stage string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.buildStages.WithLabelValues(stage).Observe(elapsed.Seconds())
}
