package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Registra(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SagaOutcome("provision", "ok", 120*time.Millisecond)
	m.SagaOutcome("provision", "compensated", 0)
	m.Compensation("provision", "tenant_mirror", false)
	m.MovementRecorded("ENTRADA")
	m.StockRejected("SALIDA")
	m.SaleCompleted(decimal.RequireFromString("2380"), 30*time.Millisecond)
	m.SaleFailed("")
	m.NumberConflict()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sagaOutcomes.WithLabelValues("provision", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues("provision", "tenant_mirror", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.movements.WithLabelValues("ENTRADA")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stockRejections.WithLabelValues("SALIDA")))
	assert.Equal(t, 2380.0, testutil.ToFloat64(m.salesAmount))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saleFailures.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.numberConflicts))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sagaDuration))
}

func TestMetrics_NilSeguro(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SagaOutcome("x", "ok", time.Second)
		m.Compensation("x", "y", true)
		m.SaleCompleted(decimal.Zero, 0)
		m.NumberConflict()
	})

	empty := New(nil)
	assert.NotPanics(t, func() {
		empty.MovementRecorded("ENTRADA")
		empty.SaleFailed("error")
	})
}
