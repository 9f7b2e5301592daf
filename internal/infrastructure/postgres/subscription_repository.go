package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

// SubscriptionRepo suscripciones sobre PostgreSQL. Un tenant tiene a lo sumo una.
type SubscriptionRepo struct {
	q Querier
}

// NewSubscriptionRepository construye el adaptador.
func NewSubscriptionRepository(q Querier) *SubscriptionRepo {
	return &SubscriptionRepo{q: q}
}

func (r *SubscriptionRepo) Create(ctx context.Context, s *entity.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, tenant_id, plan, status, store_limit, user_limit, invoice_limit, started_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.TenantID, s.Plan, s.Status, s.StoreLimit, s.UserLimit, s.InvoiceLimit, s.StartedAt, s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) GetByTenant(ctx context.Context, tenantID string) (*entity.Subscription, error) {
	query := `
		SELECT id, tenant_id, plan, status, store_limit, user_limit, invoice_limit, started_at, created_at
		FROM subscriptions WHERE tenant_id = $1`
	var s entity.Subscription
	err := r.q.QueryRow(ctx, query, tenantID).Scan(
		&s.ID, &s.TenantID, &s.Plan, &s.Status, &s.StoreLimit, &s.UserLimit, &s.InvoiceLimit, &s.StartedAt, &s.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &s, nil
}

func (r *SubscriptionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}
