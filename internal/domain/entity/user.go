package entity

import "time"

// UserProfile datos de perfil del usuario autenticado. La identidad la gestiona el proveedor externo.
type UserProfile struct {
	UserID    string
	Email     string
	Name      string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal identidad autenticada que llega en el token.
type Principal struct {
	UserID   string
	Email    string
	Name     string
	Phone    string
	TenantID string // tenant activo; vacío antes de aprovisionar o unirse
	Role     string
}
