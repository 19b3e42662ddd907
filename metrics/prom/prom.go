// Package prom exports cache metrics to Prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-clinic-console/cache"
)

// Adapter implements cache.Metrics with Prometheus counters and a gauge.
// Safe for concurrent use.
type Adapter struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	fetches  *prometheus.CounterVec
	discards prometheus.Counter
	size     prometheus.Gauge
}

// New constructs an adapter and registers its collectors.
//   - reg:          registry to register with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Reads served without revalidation",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Reads of absent or stale entries",
			ConstLabels: constLabels,
		}),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "fetches_total",
				Help:        "Requests issued to fetchers by result",
				ConstLabels: constLabels,
			},
			[]string{"result"},
		),
		discards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "discards_total",
			Help:        "Superseded responses dropped",
			ConstLabels: constLabels,
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.fetches, a.discards, a.size)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Fetch counts an issued request.
func (a *Adapter) Fetch() { a.fetches.WithLabelValues("issued").Inc() }

// FetchError counts a failed request.
func (a *Adapter) FetchError() { a.fetches.WithLabelValues("error").Inc() }

// Discard counts a dropped response.
func (a *Adapter) Discard() { a.discards.Inc() }

// Size sets the resident entries gauge.
func (a *Adapter) Size(entries int) { a.size.Set(float64(entries)) }

var _ cache.Metrics = (*Adapter)(nil)
