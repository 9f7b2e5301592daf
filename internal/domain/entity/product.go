package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto del catálogo de un tenant. El stock se lleva por área en Stock.
type Product struct {
	ID                string
	TenantID          string
	SKU               string
	Barcode           string
	Name              string
	Description       string
	Price             decimal.Decimal
	Cost              decimal.Decimal
	MinStock          int64 // umbral de alerta de stock bajo
	Discount          decimal.Decimal // porcentaje 0-100
	DiscountStartDate *time.Time
	DiscountEndDate   *time.Time
	ExpirationDate    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsExpired indica si la fecha de vencimiento es anterior al día de now. Se compara por
// día calendario: el vencimiento se guarda como medianoche UTC de su fecha y el día de
// hoy es el de la zona horaria de now, así que el producto se vende todo su último día.
func (p *Product) IsExpired(now time.Time) bool {
	if p.ExpirationDate == nil {
		return false
	}
	ey, em, ed := p.ExpirationDate.UTC().Date()
	ty, tm, td := now.Date()
	return time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC).Before(time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC))
}

// EffectivePrice precio con el descuento aplicado cuando la ventana está vigente.
func (p *Product) EffectivePrice(now time.Time) decimal.Decimal {
	if !p.Discount.IsPositive() || p.DiscountStartDate == nil || p.DiscountEndDate == nil {
		return p.Price
	}
	if now.Before(*p.DiscountStartDate) || now.After(*p.DiscountEndDate) {
		return p.Price
	}
	factor := decimal.NewFromInt(100).Sub(p.Discount).Div(decimal.NewFromInt(100))
	return p.Price.Mul(factor).Round(2)
}
