package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleItemRequest línea de venta. UnitPrice opcional: si falta se usa el precio vigente del producto.
type SaleItemRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// ProcessSaleRequest payload para POST /sales.
type ProcessSaleRequest struct {
	AreaID        string            `json:"area_id" validate:"required"`
	CustomerID    string            `json:"customer_id,omitempty"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=CASH CARD TRANSFER"`
	Items         []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

// SaleItemResponse línea de venta registrada.
type SaleItemResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// InvoiceResponse factura emitida en caja.
type InvoiceResponse struct {
	ID       string          `json:"id"`
	Number   string          `json:"number"`
	Status   string          `json:"status"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// PaymentResponse pago registrado.
type PaymentResponse struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	Status string          `json:"status"`
}

// SaleResponse resultado de la venta.
type SaleResponse struct {
	ID         string             `json:"id"`
	SaleNumber string             `json:"sale_number"`
	AreaID     string             `json:"area_id"`
	CustomerID string             `json:"customer_id,omitempty"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
	Tax        decimal.Decimal    `json:"tax"`
	Total      decimal.Decimal    `json:"total"`
	TaxRate    decimal.Decimal    `json:"tax_rate"`
	Status     string             `json:"status"`
	Items      []SaleItemResponse `json:"items"`
	Invoice    *InvoiceResponse   `json:"invoice,omitempty"`
	Payment    *PaymentResponse   `json:"payment,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}
