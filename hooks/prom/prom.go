// Package promhook counts hashcache events with Prometheus counters.
package promhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/hashcache"
)

const namespace = "hashcache"

// Hooks implements hashcache.Hooks. Every event increments a counter;
// nothing is logged.
type Hooks struct {
	decodeErrors   prometheus.Counter
	selfHeals      *prometheus.CounterVec
	putManyPartial *prometheus.CounterVec
	connFailures   *prometheus.CounterVec
	criticalMisses *prometheus.CounterVec
	lockContention *prometheus.CounterVec
}

var _ hashcache.Hooks = (*Hooks)(nil)

// New registers the counters with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Hooks{
		decodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total number of stored values that could not be decoded.",
		}),
		selfHeals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "self_heals_total",
			Help:      "Total number of entries dropped on read, by reason.",
		}, []string{"reason"}),
		putManyPartial: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "put_many_failed_members_total",
			Help:      "Total number of putMany members not stored with their expiry.",
		}, []string{"namespace"}),
		connFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_failures_total",
			Help:      "Total number of failed calls to the backing store, by operation.",
		}, []string{"op"}),
		criticalMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "critical_misses_total",
			Help:      "Total number of reads that found a critical cache unbuilt.",
		}, []string{"cache"}),
		lockContention: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_contended_total",
			Help:      "Total number of lock acquisitions that found the lock taken.",
		}, []string{"lock"}),
	}
}

func (h *Hooks) DecodeError(string, string, error) { h.decodeErrors.Inc() }

func (h *Hooks) SelfHeal(_, reason string) { h.selfHeals.WithLabelValues(reason).Inc() }

func (h *Hooks) PutManyPartial(namespace string, failed []string) {
	h.putManyPartial.WithLabelValues(namespace).Add(float64(len(failed)))
}

func (h *Hooks) ConnectionFailure(op string, _ error) { h.connFailures.WithLabelValues(op).Inc() }

func (h *Hooks) CriticalMiss(cache, _ string) { h.criticalMisses.WithLabelValues(cache).Inc() }

func (h *Hooks) LockContended(name string) { h.lockContention.WithLabelValues(name).Inc() }
