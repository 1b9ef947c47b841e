// Package metrics expõe contadores Prometheus do motor de conexões.
//
// Todos os métodos aceitam receiver nil, então componentes podem rodar sem métricas.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "account_gateway"

type Metrics struct {
	accepted      prometheus.Counter
	rejected      prometheus.Counter
	served        *prometheus.CounterVec
	slotsInUse    *prometheus.GaugeVec
	slotWait      *prometheus.HistogramVec
	admission     *prometheus.CounterVec
	globalRetries prometheus.Counter
	responses     *prometheus.CounterVec
}

// New cria e registra as métricas em reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "accepted_connections_total",
			Help:      "Connections accepted by the listener and assigned to a worker.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "rejected_connections_total",
			Help:      "Connections closed without service because shutdown was in progress.",
		}),
		served: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "served_requests_total",
			Help:      "Connections that obtained a worker slot.",
		}, []string{"worker"}),
		slotsInUse: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "slots_in_use",
			Help:      "Concurrency slots currently held per worker.",
		}, []string{"worker"}),
		slotWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "slot_wait_seconds",
			Help:      "Time a connection waited for a worker slot.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"worker"}),
		admission: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limiter decisions per tier.",
		}, []string{"tier", "decision"}),
		globalRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "global_retries_total",
			Help:      "Denied global admission attempts that were retried.",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "responses_total",
			Help:      "Responses written per route and status code.",
		}, []string{"route", "code"}),
	}
	if reg != nil {
		reg.MustRegister(m.accepted, m.rejected, m.served, m.slotsInUse, m.slotWait, m.admission, m.globalRetries, m.responses)
	}
	return m
}

func (m *Metrics) ConnectionAccepted() {
	if m == nil {
		return
	}
	m.accepted.Inc()
}

func (m *Metrics) ConnectionRejected() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

func (m *Metrics) RequestServed(worker int) {
	if m == nil {
		return
	}
	m.served.WithLabelValues(strconv.Itoa(worker)).Inc()
}

func (m *Metrics) SlotAcquired(worker int) {
	if m == nil {
		return
	}
	m.slotsInUse.WithLabelValues(strconv.Itoa(worker)).Inc()
}

func (m *Metrics) SlotReleased(worker int) {
	if m == nil {
		return
	}
	m.slotsInUse.WithLabelValues(strconv.Itoa(worker)).Dec()
}

func (m *Metrics) SlotWait(worker int, waited time.Duration) {
	if m == nil {
		return
	}
	m.slotWait.WithLabelValues(strconv.Itoa(worker)).Observe(waited.Seconds())
}

func (m *Metrics) Admission(tier string, allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.admission.WithLabelValues(tier, decision).Inc()
}

func (m *Metrics) GlobalRetries(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.globalRetries.Add(float64(n))
}

func (m *Metrics) Response(route string, code int) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
