package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de venta.
const (
	SaleStatusCompleted = "COMPLETED"
)

// Medios de pago aceptados en caja.
const (
	PaymentCash     = "CASH"
	PaymentCard     = "CARD"
	PaymentTransfer = "TRANSFER"
)

// Sale cabecera de una venta de punto de venta.
type Sale struct {
	ID            string
	TenantID      string
	AreaID        string
	SaleNumber    string // V-AAAAMMDD-NNNN, único
	CustomerID    string
	InvoiceID     string
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	TaxRate       decimal.Decimal
	PaymentMethod string
	Status        string
	CreatedBy     string
	CreatedAt     time.Time
}

// SaleItem línea de una venta.
type SaleItem struct {
	ID        string
	SaleID    string
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}
