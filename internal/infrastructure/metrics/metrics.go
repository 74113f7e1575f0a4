// Package metrics exposes payment lifecycle counters to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "qr_payment"

// Metrics groups the service counters. A nil *Metrics records nothing.
type Metrics struct {
	sessionTransitions     *prometheus.CounterVec
	transactionTransitions *prometheus.CounterVec
	notifications          *prometheus.CounterVec
	idempotency            *prometheus.CounterVec
	sweptSessions          prometheus.Counter
	qrIssued               *prometheus.CounterVec
}

// New creates the counters and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session status changes by target status and outcome.",
		}, []string{"to", "result"}),
		transactionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transaction_transitions_total",
			Help:      "Transaction status changes by target status and outcome.",
		}, []string{"to", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Event deliveries by event name and outcome.",
		}, []string{"event", "result"}),
		idempotency: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotency_requests_total",
			Help:      "Idempotent operations by outcome (executed, replayed, in_progress, failed).",
		}, []string{"outcome"}),
		sweptSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_sessions_total",
			Help:      "Expired sessions removed by the cleanup sweep.",
		}),
		qrIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qr_codes_issued_total",
			Help:      "QR codes rendered by format.",
		}, []string{"format"}),
	}

	for _, c := range []prometheus.Collector{
		m.sessionTransitions, m.transactionTransitions, m.notifications,
		m.idempotency, m.sweptSessions, m.qrIssued,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) SessionTransition(to string, err error) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(to, result(err)).Inc()
}

func (m *Metrics) TransactionTransition(to string, err error) {
	if m == nil {
		return
	}
	m.transactionTransitions.WithLabelValues(to, result(err)).Inc()
}

func (m *Metrics) Notification(event string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(event, result(err)).Inc()
}

func (m *Metrics) Idempotency(outcome string) {
	if m == nil {
		return
	}
	m.idempotency.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SessionsSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sweptSessions.Add(float64(n))
}

func (m *Metrics) QRIssued(format string) {
	if m == nil {
		return
	}
	m.qrIssued.WithLabelValues(format).Inc()
}
