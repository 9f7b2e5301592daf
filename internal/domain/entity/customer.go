package entity

import "time"

// Customer cliente del tenant al que se le factura en caja.
type Customer struct {
	ID        string
	TenantID  string
	Name      string
	TaxID     string // NIT o Cédula (Colombia)
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
