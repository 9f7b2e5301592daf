package inventory

import (
	"context"

	"github.com/jhoicas/comercio-api/internal/application/notification"
)

// Notifier publica avisos de stock bajo; la entrega es de mejor esfuerzo.
type Notifier interface {
	Publish(ctx context.Context, ev notification.Event)
}

// Metrics cuenta movimientos aplicados y rechazados por falta de stock.
type Metrics interface {
	MovementRecorded(movementType string)
	StockRejected(movementType string)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, notification.Event) {}

type nopMetrics struct{}

func (nopMetrics) MovementRecorded(string) {}
func (nopMetrics) StockRejected(string)    {}
