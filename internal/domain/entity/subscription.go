package entity

import "time"

// Estados de una suscripción.
const (
	SubscriptionActive    = "ACTIVE"
	SubscriptionSuspended = "SUSPENDED"
	SubscriptionCancelled = "CANCELLED"
)

// Subscription plan contratado por el tenant y sus límites.
type Subscription struct {
	ID           string
	TenantID     string
	Plan         string
	Status       string
	StoreLimit   int
	UserLimit    int
	InvoiceLimit int // facturas por mes
	StartedAt    time.Time
	CreatedAt    time.Time
}

// IsActive indica si la suscripción permite operar.
func (s *Subscription) IsActive() bool { return s != nil && s.Status == SubscriptionActive }
