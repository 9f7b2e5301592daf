package entity

import "time"

// Estados de registro de un tenant.
const (
	TenantStatusActive    = "ACTIVE"
	TenantStatusSuspended = "SUSPENDED"
)

// TenantRecord documento maestro del tenant en el almacén principal (fuente de verdad).
type TenantRecord struct {
	ID           string // asignado por el almacén principal
	Name         string
	TaxID        string // NIT normalizado
	SecurityCode string // código que se comparte con los empleados para unirse
	ContactEmail string
	ContactPhone string // E.164
	Address      string
	CreatedBy    string
	CreatedAt    time.Time
}

// Tenant espejo relacional del tenant. ExternalID apunta al TenantRecord.
type Tenant struct {
	ID                 string
	ExternalID         string
	Name               string
	NameKey            string // nombre normalizado para la regla de unicidad
	TaxID              string
	SecurityCode       string // copia del código del TenantRecord
	ContactEmail       string
	ContactPhone       string
	Address            string
	RegistrationStatus string
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
