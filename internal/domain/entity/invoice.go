package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de factura.
const (
	InvoiceStatusDraft     = "DRAFT"
	InvoiceStatusPending   = "PENDING"
	InvoiceStatusPaid      = "PAID"
	InvoiceStatusCancelled = "CANCELLED"
	InvoiceStatusOverdue   = "OVERDUE"
)

// Invoice cabecera de factura. En caja nace pagada y ligada a la venta.
type Invoice struct {
	ID         string
	TenantID   string
	CustomerID string
	SaleID     string
	Number     string // F-AAAAMMDD-NNNN
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	Status     string
	IssuedAt   time.Time
	CreatedAt  time.Time
}

// InvoiceItem línea de factura.
type InvoiceItem struct {
	ID        string
	InvoiceID string
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	Subtotal  decimal.Decimal
}

// Payment pago registrado contra una factura.
type Payment struct {
	ID        string
	TenantID  string
	InvoiceID string
	Amount    decimal.Decimal
	Method    string
	Status    string
	PaidAt    time.Time
}

// Estados de pago.
const (
	PaymentStatusCompleted = "COMPLETED"
)
