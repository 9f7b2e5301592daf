package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementEntrada       = "ENTRADA"
	MovementSalida        = "SALIDA"
	MovementTransferencia = "TRANSFERENCIA"
)

// Sentido del movimiento sobre el área.
const (
	DirectionIn  = "IN"
	DirectionOut = "OUT"
)

// Movement registro de auditoría de un cambio de stock. Una transferencia deja dos filas.
type Movement struct {
	ID                string
	TenantID          string
	ProductID         string
	AreaID            string
	Type              string
	Direction         string
	Quantity          int64 // siempre positiva; el sentido lo da Direction
	CounterpartAreaID string
	UnitCost          decimal.Decimal
	ProviderID        string
	SaleID            string
	Reference         string
	CreatedBy         string
	CreatedAt         time.Time
}

// IsValidMovementType valida el tipo recibido.
func IsValidMovementType(t string) bool {
	switch t {
	case MovementEntrada, MovementSalida, MovementTransferencia:
		return true
	}
	return false
}
