// Package metrics records rename outcomes as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

// Recorder implements simpleauthority.Observer
type Recorder struct {
	renames  *prometheus.CounterVec
	items    prometheus.Counter
	duration *prometheus.HistogramVec
}

var _ simpleauthority.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder registered with reg, or with the default
// registerer when reg is nil. Collectors already registered under the same
// names are reused.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		renames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simple_authority",
				Name:      "renames_total",
				Help:      "Authority rename attempts by outcome.",
			},
			[]string{"outcome"},
		),
		items: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "simple_authority",
				Name:      "items_rewritten_total",
				Help:      "Content items rewritten by authority renames.",
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "simple_authority",
				Name:      "rename_duration_seconds",
				Help:      "Authority rename duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
	r.renames = register(reg, r.renames)
	r.items = register(reg, r.items)
	r.duration = register(reg, r.duration)
	return r
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RenameFinished records one rename attempt
func (r *Recorder) RenameFinished(outcome string, itemsUpdated int, duration time.Duration) {
	r.renames.WithLabelValues(outcome).Inc()
	r.duration.WithLabelValues(outcome).Observe(duration.Seconds())
	if itemsUpdated > 0 {
		r.items.Add(float64(itemsUpdated))
	}
}
