package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.SessionTransition("scanned", nil)
	m.SessionTransition("scanned", errors.New("conflict"))
	m.TransactionTransition("confirmed", nil)
	m.Idempotency("replayed")
	m.SessionsSwept(3)
	m.SessionsSwept(0)
	m.QRIssued("png")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionTransitions.WithLabelValues("scanned", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionTransitions.WithLabelValues("scanned", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweptSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.qrIssued.WithLabelValues("png")))

	_, err = New(reg)
	assert.Error(t, err, "duplicate registration")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionTransition("scanned", nil)
		m.Notification("payment.completed", nil)
		m.SessionsSwept(1)
	})
}
