package dto

import "time"

// ProvisionTenantRequest alta de un nuevo tenant por el usuario autenticado.
type ProvisionTenantRequest struct {
	Name         string `json:"name" validate:"required,max=120"`
	TaxID        string `json:"tax_id" validate:"required,max=20"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
	ContactPhone string `json:"contact_phone" validate:"required"`
	Address      string `json:"address" validate:"required,max=200"`
	StoreName    string `json:"store_name,omitempty" validate:"max=120"`
}

// ProvisionTenantResponse resultado del aprovisionamiento.
type ProvisionTenantResponse struct {
	TenantID         string `json:"tenant_id"`
	StoreID          string `json:"store_id"`
	ExternalTenantID string `json:"external_tenant_id"`
	ExternalStoreID  string `json:"external_store_id"`
	SecurityCode     string `json:"security_code"`
	Redirect         string `json:"redirect"`
}

// CreateStoreRequest alta de una tienda adicional.
type CreateStoreRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Address string `json:"address" validate:"max=200"`
	Phone   string `json:"phone"`
}

// StoreResponse tienda.
type StoreResponse struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Address    string    `json:"address,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// JoinTenantRequest solicitud de ingreso por NIT y código de seguridad.
type JoinTenantRequest struct {
	TaxID        string `json:"tax_id" validate:"required"`
	SecurityCode string `json:"security_code" validate:"required"`
}

// JoinRequestResponse estado de una solicitud de ingreso.
type JoinRequestResponse struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	TenantName string     `json:"tenant_name,omitempty"`
	UserID     string     `json:"user_id"`
	Status     string     `json:"status"`
	Created    bool       `json:"created"`
	CreatedAt  time.Time  `json:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// ReviewJoinRequest decisión del administrador.
type ReviewJoinRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
}

// MembershipResponse membresía del usuario en un tenant.
type MembershipResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	Role      string `json:"role"`
	IsDefault bool   `json:"is_default"`
}
