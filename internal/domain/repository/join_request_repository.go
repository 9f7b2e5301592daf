package repository

import (
	"context"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

// JoinRequestRepository puerto de solicitudes de ingreso.
type JoinRequestRepository interface {
	// Create devuelve domain.ErrDuplicate si ya hay una pendiente para el par (usuario, tenant).
	Create(ctx context.Context, r *entity.JoinRequest) error
	GetByID(ctx context.Context, id string) (*entity.JoinRequest, error)
	FindPending(ctx context.Context, userID, tenantID string) (*entity.JoinRequest, error)
	// FindLatestRejected devuelve la última solicitud rechazada del par, o nil.
	FindLatestRejected(ctx context.Context, userID, tenantID string) (*entity.JoinRequest, error)
	ListPending(ctx context.Context, tenantID string) ([]*entity.JoinRequest, error)
	// Resolve cambia el estado sólo si sigue PENDING; false si otra revisión ganó.
	Resolve(ctx context.Context, r *entity.JoinRequest) (bool, error)
	Reopen(ctx context.Context, id string) error
}

// NotificationRepository puerto de notificaciones.
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*entity.Notification, error)
}
