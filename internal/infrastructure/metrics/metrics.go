// Package metrics expone en Prometheus los resultados de sagas, movimientos y ventas.
// Todos los métodos toleran un receptor nil o construido sin registerer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/comercio-api/internal/application/inventory"
	"github.com/jhoicas/comercio-api/internal/application/sales"
	"github.com/jhoicas/comercio-api/internal/application/tenant"
)

var (
	_ tenant.Metrics    = (*Metrics)(nil)
	_ inventory.Metrics = (*Metrics)(nil)
	_ sales.Metrics     = (*Metrics)(nil)
)

const namespace = "comercio"

// Metrics colectores de la aplicación.
type Metrics struct {
	sagaOutcomes    *prometheus.CounterVec
	sagaDuration    *prometheus.HistogramVec
	compensations   *prometheus.CounterVec
	movements       *prometheus.CounterVec
	stockRejections *prometheus.CounterVec
	salesTotal      prometheus.Counter
	salesAmount     prometheus.Counter
	saleDuration    prometheus.Histogram
	saleFailures    *prometheus.CounterVec
	numberConflicts prometheus.Counter
}

// New registra los colectores en reg. Con reg nil devuelve un Metrics que no registra nada.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		sagaOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "saga_outcomes_total",
			Help: "Sagas terminadas por flujo y resultado (ok, compensated, rejected).",
		}, []string{"flow", "outcome"}),
		sagaDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "saga_duration_seconds",
			Help:    "Duración de las sagas.",
			Buckets: prometheus.DefBuckets,
		}, []string{"flow"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "saga_compensations_total",
			Help: "Compensaciones ejecutadas por flujo, paso y resultado.",
		}, []string{"flow", "step", "result"}),
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "inventory_movements_total",
			Help: "Movimientos de inventario aplicados por tipo.",
		}, []string{"type"}),
		stockRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "inventory_stock_rejections_total",
			Help: "Operaciones rechazadas por stock insuficiente.",
		}, []string{"type"}),
		salesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sales_completed_total",
			Help: "Ventas confirmadas.",
		}),
		salesAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sales_amount_total",
			Help: "Suma de los totales vendidos.",
		}),
		saleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "sale_duration_seconds",
			Help:    "Duración de la transacción de venta.",
			Buckets: prometheus.DefBuckets,
		}),
		saleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sales_failed_total",
			Help: "Ventas fallidas por motivo.",
		}, []string{"reason"}),
		numberConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sales_number_conflicts_total",
			Help: "Colisiones de número de venta o factura que forzaron un reintento.",
		}),
	}
	reg.MustRegister(
		m.sagaOutcomes, m.sagaDuration, m.compensations, m.movements, m.stockRejections,
		m.salesTotal, m.salesAmount, m.saleDuration, m.saleFailures, m.numberConflicts,
	)
	return m
}

func (m *Metrics) SagaOutcome(flow, outcome string, elapsed time.Duration) {
	if m == nil || m.sagaOutcomes == nil {
		return
	}
	m.sagaOutcomes.WithLabelValues(normalizeLabel(flow), normalizeLabel(outcome)).Inc()
	if elapsed > 0 {
		m.sagaDuration.WithLabelValues(normalizeLabel(flow)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) Compensation(flow, step string, ok bool) {
	if m == nil || m.compensations == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.compensations.WithLabelValues(normalizeLabel(flow), normalizeLabel(step), result).Inc()
}

func (m *Metrics) MovementRecorded(movementType string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(movementType)).Inc()
}

func (m *Metrics) StockRejected(movementType string) {
	if m == nil || m.stockRejections == nil {
		return
	}
	m.stockRejections.WithLabelValues(normalizeLabel(movementType)).Inc()
}

func (m *Metrics) SaleCompleted(total decimal.Decimal, elapsed time.Duration) {
	if m == nil || m.salesTotal == nil {
		return
	}
	m.salesTotal.Inc()
	m.salesAmount.Add(total.InexactFloat64())
	m.saleDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SaleFailed(reason string) {
	if m == nil || m.saleFailures == nil {
		return
	}
	m.saleFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) NumberConflict() {
	if m == nil || m.numberConflicts == nil {
		return
	}
	m.numberConflicts.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
