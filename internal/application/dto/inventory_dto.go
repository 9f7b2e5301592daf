package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest payload para POST /inventory/movements.
// ENTRADA y SALIDA usan AreaID; TRANSFERENCIA usa FromAreaID y ToAreaID.
type RegisterMovementRequest struct {
	ProductID  string           `json:"product_id" validate:"required"`
	Type       string           `json:"type" validate:"required,oneof=ENTRADA SALIDA TRANSFERENCIA"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	AreaID     string           `json:"area_id,omitempty"`
	FromAreaID string           `json:"from_area_id,omitempty"`
	ToAreaID   string           `json:"to_area_id,omitempty"`
	ProviderID string           `json:"provider_id,omitempty"`
	Reference  string           `json:"reference,omitempty" validate:"max=120"`
}

// MovementResponse movimiento registrado.
type MovementResponse struct {
	ID                string           `json:"id"`
	ProductID         string           `json:"product_id"`
	AreaID            string           `json:"area_id"`
	Type              string           `json:"type"`
	Direction         string           `json:"direction"`
	Quantity          int64            `json:"quantity"`
	UnitCost          *decimal.Decimal `json:"unit_cost,omitempty"`
	CounterpartAreaID string           `json:"counterpart_area_id,omitempty"`
	SaleID            string           `json:"sale_id,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// StockLevelResponse existencias resultantes en un área.
type StockLevelResponse struct {
	ProductID string `json:"product_id"`
	AreaID    string `json:"area_id"`
	Quantity  int64  `json:"quantity"`
	LowStock  bool   `json:"low_stock"`
}

// RegisterMovementResponse respuesta de un movimiento (dos filas en transferencias).
type RegisterMovementResponse struct {
	Movements []MovementResponse   `json:"movements"`
	Stock     []StockLevelResponse `json:"stock"`
}

// LowStockResponse fila del reporte de stock bajo, con la cantidad sugerida de pedido.
type LowStockResponse struct {
	ProductID         string `json:"product_id"`
	ProductName       string `json:"product_name"`
	SKU               string `json:"sku"`
	AreaID            string `json:"area_id"`
	Quantity          int64  `json:"quantity"`
	MinStock          int64  `json:"min_stock"`
	SuggestedOrderQty int64  `json:"suggested_order_qty"`
	Priority          int    `json:"priority"`
}
