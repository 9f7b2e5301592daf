package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest alta de producto.
type CreateProductRequest struct {
	SKU               string           `json:"sku" validate:"required,max=60"`
	Barcode           string           `json:"barcode,omitempty" validate:"max=60"`
	Name              string           `json:"name" validate:"required,max=160"`
	Description       string           `json:"description,omitempty"`
	Price             decimal.Decimal  `json:"price"`
	Cost              decimal.Decimal  `json:"cost"`
	MinStock          int64            `json:"min_stock" validate:"min=0"`
	Discount          *decimal.Decimal `json:"discount,omitempty"`
	DiscountStartDate *time.Time       `json:"discount_start_date,omitempty"`
	DiscountEndDate   *time.Time       `json:"discount_end_date,omitempty"`
	ExpirationDate    *time.Time       `json:"expiration_date,omitempty"`
}

// ProductResponse producto.
type ProductResponse struct {
	ID                string           `json:"id"`
	TenantID          string           `json:"tenant_id"`
	SKU               string           `json:"sku"`
	Barcode           string           `json:"barcode,omitempty"`
	Name              string           `json:"name"`
	Description       string           `json:"description,omitempty"`
	Price             decimal.Decimal  `json:"price"`
	EffectivePrice    decimal.Decimal  `json:"effective_price"`
	Cost              decimal.Decimal  `json:"cost"`
	MinStock          int64            `json:"min_stock"`
	Discount          *decimal.Decimal `json:"discount,omitempty"`
	DiscountStartDate *time.Time       `json:"discount_start_date,omitempty"`
	DiscountEndDate   *time.Time       `json:"discount_end_date,omitempty"`
	ExpirationDate    *time.Time       `json:"expiration_date,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// ProductListResponse listado paginado de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// CreateCustomerRequest alta de cliente.
type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=160"`
	TaxID string `json:"tax_id" validate:"required,max=20"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

// CustomerResponse cliente.
type CustomerResponse struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	TaxID    string `json:"tax_id"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}
