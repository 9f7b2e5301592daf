package entity

import "time"

// Roles de un usuario dentro de un tenant.
const (
	RoleAdministrator = "ADMINISTRATOR"
	RoleEmployee      = "EMPLOYEE"
)

// UserTenantRole membresía de un usuario en un tenant.
// Un usuario tiene a lo sumo una membresía con IsDefault en todo el sistema.
type UserTenantRole struct {
	ID        string
	UserID    string
	TenantID  string
	Role      string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin indica si la membresía es de administrador.
func (m *UserTenantRole) IsAdmin() bool { return m != nil && m.Role == RoleAdministrator }
