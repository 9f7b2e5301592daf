package tenant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/application/saga"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
	"github.com/jhoicas/comercio-api/pkg/normalize"
)

const flowCreateStore = "create_store"

// StoreDeps dependencias del alta de tiendas.
type StoreDeps struct {
	Primary       repository.PrimaryStore
	Tenants       repository.TenantRepository
	Stores        repository.StoreRepository
	Subscriptions repository.SubscriptionRepository
	Memberships   repository.MembershipRepository
	Metrics       Metrics
	Log           zerolog.Logger
}

// StoreUseCase alta y consulta de tiendas de un tenant.
type StoreUseCase struct {
	StoreDeps
	cfg Config
}

// NewStoreUseCase construye el caso de uso.
func NewStoreUseCase(deps StoreDeps, cfg Config) *StoreUseCase {
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &StoreUseCase{StoreDeps: deps, cfg: cfg}
}

// Create agrega una tienda no predeterminada en ambos almacenes respetando el límite del plan.
func (uc *StoreUseCase) Create(ctx context.Context, p entity.Principal, tenantID string, in dto.CreateStoreRequest) (*dto.StoreResponse, error) {
	in.Name = normalize.DisplayName(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	phone := ""
	if strings.TrimSpace(in.Phone) != "" {
		var err error
		if phone, err = normalize.Phone(in.Phone, uc.cfg.PhoneRegion); err != nil {
			return nil, domain.NewValidationError(domain.FieldError{Field: "phone", Message: "no es un número de teléfono válido"})
		}
	}
	if _, err := requireAdmin(ctx, uc.Memberships, p.UserID, tenantID); err != nil {
		return nil, err
	}
	t, err := uc.Tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: tenant inexistente", domain.ErrNotFound)
	}
	sub, err := uc.Subscriptions.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive() {
		return nil, fmt.Errorf("%w: suscripción inactiva", domain.ErrForbidden)
	}
	count, err := uc.Stores.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if count >= sub.StoreLimit {
		return nil, fmt.Errorf("%w: el plan permite %d tiendas", domain.ErrConflict, sub.StoreLimit)
	}

	now := time.Now().UTC()
	docID, err := uc.Primary.InsertStore(ctx, &entity.StoreRecord{
		TenantID: t.ExternalID, Name: in.Name, Address: in.Address, Phone: phone, CreatedAt: now,
	})
	if err != nil {
		return nil, domain.PrimaryWrite("store_document", err)
	}
	undo := saga.New(flowCreateStore, uc.Log, uc.Metrics, uc.cfg.StepTimeout)
	undo.Push("primary_store", func(ctx context.Context) error { return uc.Primary.DeleteStore(ctx, docID) })

	s := &entity.Store{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		ExternalID: docID,
		Name:       in.Name,
		Address:    in.Address,
		Phone:      phone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := saga.Run(ctx, uc.cfg.StepTimeout, func(ctx context.Context) error { return uc.Stores.Create(ctx, s) }); err != nil {
		undo.Unwind(ctx)
		uc.Metrics.SagaOutcome(flowCreateStore, "compensated", 0)
		return nil, domain.SecondaryWrite("store_mirror", err)
	}
	uc.Metrics.SagaOutcome(flowCreateStore, "ok", 0)
	return toStoreResponse(s), nil
}

// List tiendas del tenant; requiere pertenecer a él.
func (uc *StoreUseCase) List(ctx context.Context, p entity.Principal, tenantID string) ([]*dto.StoreResponse, error) {
	if _, err := requireMember(ctx, uc.Memberships, p.UserID, tenantID); err != nil {
		return nil, err
	}
	list, err := uc.Stores.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.StoreResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toStoreResponse(s))
	}
	return out, nil
}

func toStoreResponse(s *entity.Store) *dto.StoreResponse {
	return &dto.StoreResponse{
		ID:         s.ID,
		TenantID:   s.TenantID,
		ExternalID: s.ExternalID,
		Name:       s.Name,
		Address:    s.Address,
		Phone:      s.Phone,
		IsDefault:  s.IsDefault,
		CreatedAt:  s.CreatedAt,
	}
}
