package entity

import "time"

// Estados de una solicitud de ingreso.
const (
	JoinStatusPending  = "PENDING"
	JoinStatusApproved = "APPROVED"
	JoinStatusRejected = "REJECTED"
)

// JoinRequest solicitud de un usuario para unirse a un tenant existente.
type JoinRequest struct {
	ID         string
	TenantID   string
	UserID     string
	Status     string
	ReviewedBy string
	ReviewedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
