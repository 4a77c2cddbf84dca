// Package metrics exposes map load statistics to Prometheus. Collector
// implements parser.Observer, so it can be attached to a reader directly.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"mapreader/internal/parser"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mapreader"

// OutcomeFailed labels loads that ended with an error.
const OutcomeFailed = "failed"

// Collector holds the load metrics.
type Collector struct {
	registry *prometheus.Registry

	entities   prometheus.Counter
	primitives *prometheus.CounterVec
	discarded  *prometheus.CounterVec
	loads      *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewCollector registers the load metrics on registry. A nil registry gets a fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		entities: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_parsed_total",
			Help:      "Entities delivered to a sink.",
		}),
		primitives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "primitives_parsed_total",
			Help:      "Primitives parsed, by keyword.",
		}, []string{"type"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "primitives_discarded_total",
			Help:      "Primitives dropped because their entity is not a container, by keyword.",
		}, []string{"type"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Map loads by outcome and failure kind.",
		}, []string{"outcome", "kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Wall time of map loads.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),
	}

	registry.MustRegister(c.entities, c.primitives, c.discarded, c.loads, c.duration)
	return c
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// EntityParsed implements parser.Observer.
func (c *Collector) EntityParsed(parser.ParseContext, *parser.Entity) {
	c.entities.Inc()
}

// PrimitiveParsed implements parser.Observer.
func (c *Collector) PrimitiveParsed(_ parser.ParseContext, keyword string) {
	c.primitives.WithLabelValues(keyword).Inc()
}

// PrimitiveDiscarded implements parser.Observer.
func (c *Collector) PrimitiveDiscarded(ev parser.DiscardEvent) {
	c.discarded.WithLabelValues(ev.Keyword).Inc()
}

// RecordLoad counts a finished load. res may be nil when the read never started.
func (c *Collector) RecordLoad(res *parser.Result, err error, elapsed time.Duration) {
	outcome, kind := OutcomeFailed, ""
	switch {
	case err != nil:
		var fe *parser.FatalError
		if errors.As(err, &fe) {
			kind = string(fe.Kind)
		}
	case res != nil:
		outcome = string(res.Outcome)
	}
	c.loads.WithLabelValues(outcome, kind).Inc()
	c.duration.Observe(elapsed.Seconds())
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
