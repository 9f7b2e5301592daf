package tenant

import (
	"context"
	"fmt"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

// MembershipUseCase consultas de membresía y del estado de la suscripción.
type MembershipUseCase struct {
	memberships   repository.MembershipRepository
	subscriptions repository.SubscriptionRepository
}

// NewMembershipUseCase construye el caso de uso.
func NewMembershipUseCase(memberships repository.MembershipRepository, subscriptions repository.SubscriptionRepository) *MembershipUseCase {
	return &MembershipUseCase{memberships: memberships, subscriptions: subscriptions}
}

// Get membresía del usuario autenticado en el tenant.
func (uc *MembershipUseCase) Get(ctx context.Context, p entity.Principal, tenantID string) (*dto.MembershipResponse, error) {
	if p.UserID == "" {
		return nil, fmt.Errorf("%w: identidad requerida", domain.ErrUnauthorized)
	}
	m, err := uc.memberships.Get(ctx, p.UserID, tenantID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: sin membresía en el tenant", domain.ErrNotFound)
	}
	return toMembershipResponse(m), nil
}

// List membresías del usuario autenticado.
func (uc *MembershipUseCase) List(ctx context.Context, p entity.Principal) ([]*dto.MembershipResponse, error) {
	list, err := uc.memberships.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.MembershipResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMembershipResponse(m))
	}
	return out, nil
}

// HasActiveSubscription indica si el tenant puede operar.
func (uc *MembershipUseCase) HasActiveSubscription(ctx context.Context, tenantID string) (bool, error) {
	sub, err := uc.subscriptions.GetByTenant(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return sub.IsActive(), nil
}

func toMembershipResponse(m *entity.UserTenantRole) *dto.MembershipResponse {
	return &dto.MembershipResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		TenantID:  m.TenantID,
		Role:      m.Role,
		IsDefault: m.IsDefault,
	}
}
