package sales

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

// InventoryUseCase integración caja-inventario.
// ApplySaleOutInTx descuenta stock y deja el movimiento SALIDA usando la transacción del caller;
// si retorna error (ej: stock insuficiente) el caller hace rollback.
type InventoryUseCase interface {
	ApplySaleOutInTx(
		ctx context.Context,
		uow repository.UnitOfWork,
		product *entity.Product,
		areaID, userID, saleID string,
		quantity int64,
		now time.Time,
	) (int64, error)
	NotifyLowStock(ctx context.Context, product *entity.Product, areaID string, remaining int64, userID string)
}

// Metrics observa las ventas procesadas.
type Metrics interface {
	SaleCompleted(total decimal.Decimal, elapsed time.Duration)
	SaleFailed(reason string)
	NumberConflict()
}

type nopMetrics struct{}

func (nopMetrics) SaleCompleted(decimal.Decimal, time.Duration) {}
func (nopMetrics) SaleFailed(string)                            {}
func (nopMetrics) NumberConflict()                              {}

// Config parámetros de caja.
type Config struct {
	TaxRate       decimal.Decimal // fracción, 0.19 = 19 %
	SalePrefix    string
	InvoicePrefix string
	Location      *time.Location // zona para el día del consecutivo
	NumberRetries int
}
