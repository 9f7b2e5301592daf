package entity

import "time"

// Stock existencias de un producto en un área. Quantity nunca es negativa.
type Stock struct {
	ProductID string
	AreaID    string
	Quantity  int64
	UpdatedAt time.Time
}

// LowStockItem fila del reporte de stock bajo.
type LowStockItem struct {
	ProductID   string
	ProductName string
	SKU         string
	AreaID      string
	Quantity    int64
	MinStock    int64
}
