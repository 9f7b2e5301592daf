package entity

import "time"

// Categorías de notificación.
const (
	NotificationTenant      = "TENANT"
	NotificationJoinRequest = "JOIN_REQUEST"
	NotificationInventory   = "INVENTORY"
)

// Notification aviso dirigido a un usuario dentro de un tenant.
type Notification struct {
	ID          string
	TenantID    string
	RecipientID string
	Category    string
	Title       string
	Message     string
	Link        string
	CreatedBy   string
	ReadAt      *time.Time
	CreatedAt   time.Time
}
