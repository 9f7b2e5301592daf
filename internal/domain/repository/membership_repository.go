package repository

import (
	"context"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

// MembershipRepository puerto de membresías usuario-tenant.
type MembershipRepository interface {
	Create(ctx context.Context, m *entity.UserTenantRole) error
	Get(ctx context.Context, userID, tenantID string) (*entity.UserTenantRole, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.UserTenantRole, error)
	ListAdmins(ctx context.Context, tenantID string) ([]*entity.UserTenantRole, error)
	// DemoteOthers quita IsDefault a las demás membresías del usuario y devuelve sus IDs.
	DemoteOthers(ctx context.Context, userID, keepID string) ([]string, error)
	SetDefault(ctx context.Context, id string, isDefault bool) error
	Delete(ctx context.Context, id string) error
}

// UserProfileRepository puerto de perfiles de usuario.
type UserProfileRepository interface {
	// Upsert crea o actualiza el perfil; created es true si no existía.
	Upsert(ctx context.Context, p *entity.UserProfile) (created bool, err error)
	Get(ctx context.Context, userID string) (*entity.UserProfile, error)
	Delete(ctx context.Context, userID string) error
}
