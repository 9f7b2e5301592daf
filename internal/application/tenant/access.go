package tenant

import (
	"context"
	"fmt"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

func requireMember(ctx context.Context, memberships repository.MembershipRepository, userID, tenantID string) (*entity.UserTenantRole, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: identidad requerida", domain.ErrUnauthorized)
	}
	m, err := memberships.Get(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: no pertenece al tenant", domain.ErrForbidden)
	}
	return m, nil
}

func requireAdmin(ctx context.Context, memberships repository.MembershipRepository, userID, tenantID string) (*entity.UserTenantRole, error) {
	m, err := requireMember(ctx, memberships, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if !m.IsAdmin() {
		return nil, fmt.Errorf("%w: se requiere rol de administrador", domain.ErrForbidden)
	}
	return m, nil
}
