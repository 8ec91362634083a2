// Package metrics exposes Prometheus counters for the decision pipeline.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "slotpoll"

const (
	ResultOK      = "ok"
	ResultWon     = "won"
	ResultLost    = "lost"
	ResultFailed  = "failed"
	ResultNoPoll  = "not_found"
	ResultStoreKO = "store_unavailable"
)

type Collector struct {
	ticks      *prometheus.CounterVec
	claims     *prometheus.CounterVec
	dispatches *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "driver_ticks_total",
			Help:      "evaluation passes run by poll drivers, by result",
		}, []string{"result"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcome_claims_total",
			Help:      "outcome ledger claim attempts, by outcome kind and result",
		}, []string{"kind", "result"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "notification dispatches for won claims, by outcome kind and result",
		}, []string{"kind", "result"}),
	}
	if reg != nil {
		reg.MustRegister(c.ticks, c.claims, c.dispatches)
	}
	return c
}

func (c *Collector) Tick(result string) {
	if c == nil {
		return
	}
	c.ticks.WithLabelValues(result).Inc()
}

func (c *Collector) Claim(kind, result string) {
	if c == nil {
		return
	}
	c.claims.WithLabelValues(kind, result).Inc()
}

func (c *Collector) Dispatch(kind, result string) {
	if c == nil {
		return
	}
	c.dispatches.WithLabelValues(kind, result).Inc()
}
