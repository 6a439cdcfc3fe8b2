// Package metrics exposes the cart's prometheus instruments.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Mutations        *prometheus.CounterVec
	PersistFailures  prometheus.Counter
	LoadRecoveries   *prometheus.CounterVec
	CheckoutHandoffs *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Committed cart ledger mutations by operation.",
		}, []string{"op"}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_persist_failures_total",
			Help: "Ledger writes that failed to reach durable storage.",
		}),
		LoadRecoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_load_recoveries_total",
			Help: "Rehydrations that had to discard or repair persisted data.",
		}, []string{"reason"}),
		CheckoutHandoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_checkout_handoffs_total",
			Help: "Checkout hand-off attempts by result.",
		}, []string{"result"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cart_sessions_active",
			Help: "Cart sessions currently held in memory.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Mutations, m.PersistFailures, m.LoadRecoveries, m.CheckoutHandoffs, m.ActiveSessions)
	}
	return m
}

// Nop returns unregistered instruments, for callers that do not export metrics.
func Nop() *Metrics {
	return New(nil)
}
