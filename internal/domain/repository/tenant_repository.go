package repository

import (
	"context"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

// TenantRepository puerto del espejo relacional de tenants. Los Get devuelven (nil, nil) si no existe.
type TenantRepository interface {
	Create(ctx context.Context, t *entity.Tenant) error
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
	GetByExternalID(ctx context.Context, externalID string) (*entity.Tenant, error)
	// FindConflicts devuelve los tenants que coinciden por NIT o por nombre normalizado.
	FindConflicts(ctx context.Context, taxID, nameKey string) ([]*entity.Tenant, error)
	Delete(ctx context.Context, id string) error
}

// StoreRepository puerto del espejo relacional de tiendas (áreas).
type StoreRepository interface {
	Create(ctx context.Context, s *entity.Store) error
	GetByID(ctx context.Context, id string) (*entity.Store, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.Store, error)
	CountByTenant(ctx context.Context, tenantID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// SubscriptionRepository puerto de suscripciones.
type SubscriptionRepository interface {
	Create(ctx context.Context, s *entity.Subscription) error
	GetByTenant(ctx context.Context, tenantID string) (*entity.Subscription, error)
	Delete(ctx context.Context, id string) error
}
