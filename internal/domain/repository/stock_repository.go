package repository

import (
	"context"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

// StockRepository puerto de existencias por producto y área.
// Usado dentro de transacciones; Decrement es condicional y nunca deja cantidades negativas.
type StockRepository interface {
	Get(ctx context.Context, productID, areaID string) (*entity.Stock, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, productID, areaID string) (*entity.Stock, error)
	// Increment suma qty (creando la fila si falta) y devuelve la nueva cantidad.
	Increment(ctx context.Context, productID, areaID string, qty int64) (int64, error)
	// Decrement resta qty sólo si hay suficiente; ok=false si no se aplicó.
	Decrement(ctx context.Context, productID, areaID string, qty int64) (remaining int64, ok bool, err error)
	ListBelowMinimum(ctx context.Context, tenantID, areaID string) ([]*entity.LowStockItem, error)
}

// MovementRepository puerto de movimientos de inventario.
type MovementRepository interface {
	Create(ctx context.Context, m *entity.Movement) error
	ListByProduct(ctx context.Context, productID string, limit int) ([]*entity.Movement, error)
}
