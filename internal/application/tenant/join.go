package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/application/notification"
	"github.com/jhoicas/comercio-api/internal/application/saga"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
	"github.com/jhoicas/comercio-api/pkg/normalize"
)

const flowReview = "review_join_request"

// JoinDeps dependencias de las solicitudes de ingreso.
type JoinDeps struct {
	Primary     repository.PrimaryStore
	Tenants     repository.TenantRepository
	Memberships repository.MembershipRepository
	Joins       repository.JoinRequestRepository
	Limiter     RateLimiter // opcional
	Notifier    Notifier
	Metrics     Metrics
	Log         zerolog.Logger
}

// JoinUseCase solicitudes de ingreso a un tenant existente y su revisión.
type JoinUseCase struct {
	JoinDeps
	cfg Config
	now func() time.Time
}

// NewJoinUseCase construye el caso de uso.
func NewJoinUseCase(deps JoinDeps, cfg Config) *JoinUseCase {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if cfg.JoinCooldown <= 0 {
		cfg.JoinCooldown = 24 * time.Hour
	}
	return &JoinUseCase{JoinDeps: deps, cfg: cfg, now: time.Now}
}

// WithClock reemplaza el reloj; pensado para pruebas.
func (uc *JoinUseCase) WithClock(now func() time.Time) *JoinUseCase {
	uc.now = now
	return uc
}

// RequestJoin crea (o devuelve la existente) solicitud pendiente del usuario para el tenant
// identificado por NIT, siempre que el código de seguridad coincida.
func (uc *JoinUseCase) RequestJoin(ctx context.Context, p entity.Principal, in dto.JoinTenantRequest) (*dto.JoinRequestResponse, error) {
	if p.UserID == "" {
		return nil, fmt.Errorf("%w: identidad requerida", domain.ErrUnauthorized)
	}
	if uc.Primary == nil {
		return nil, fmt.Errorf("%w: almacén principal no configurado", domain.ErrConfiguration)
	}
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	log := uc.Log.With().Str("user_id", p.UserID).Logger()

	if uc.Limiter != nil {
		allowed, err := uc.Limiter.Allow(ctx, "join:"+p.UserID)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("limitador no disponible, se continúa sin límite")
		case !allowed:
			return nil, fmt.Errorf("%w: intente más tarde", domain.ErrRateLimited)
		}
	}

	taxID := normalize.TaxID(in.TaxID)
	record, err := uc.Primary.FindTenantByTaxID(ctx, taxID)
	if err != nil {
		return nil, fmt.Errorf("buscar tenant: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: no existe un tenant con ese NIT", domain.ErrNotFound)
	}
	t, err := uc.Tenants.GetByExternalID(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("buscar espejo del tenant: %w", err)
	}
	if t == nil || t.TaxID != record.TaxID {
		return nil, fmt.Errorf("%w: el tenant no está disponible", domain.ErrNotFound)
	}
	if !codesMatch(record.SecurityCode, in.SecurityCode) {
		return nil, fmt.Errorf("%w: código de seguridad incorrecto", domain.ErrUnauthorized)
	}

	member, err := uc.Memberships.Get(ctx, p.UserID, t.ID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return nil, fmt.Errorf("%w: el usuario ya pertenece al tenant", domain.ErrConflict)
	}

	now := uc.now().UTC()
	rejected, err := uc.Joins.FindLatestRejected(ctx, p.UserID, t.ID)
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		retryAfter := rejected.CreatedAt.Add(uc.cfg.JoinCooldown)
		if now.Before(retryAfter) {
			return nil, &domain.CooldownError{RetryAfter: retryAfter}
		}
	}

	if pending, err := uc.Joins.FindPending(ctx, p.UserID, t.ID); err != nil {
		return nil, err
	} else if pending != nil {
		return toJoinResponse(pending, t.Name, false), nil
	}

	req := &entity.JoinRequest{
		ID:        uuid.New().String(),
		TenantID:  t.ID,
		UserID:    p.UserID,
		Status:    entity.JoinStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Joins.Create(ctx, req); err != nil {
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, fmt.Errorf("crear solicitud: %w", err)
		}
		// otra petición concurrente ganó: devolver la que quedó
		pending, ferr := uc.Joins.FindPending(ctx, p.UserID, t.ID)
		if ferr != nil || pending == nil {
			return nil, fmt.Errorf("crear solicitud: %w", err)
		}
		return toJoinResponse(pending, t.Name, false), nil
	}

	who := p.Name
	if who == "" {
		who = p.Email
	}
	uc.Notifier.Publish(ctx, notification.Event{
		TenantID:  t.ID,
		Category:  entity.NotificationJoinRequest,
		Title:     "Nueva solicitud de ingreso",
		Message:   fmt.Sprintf("%s solicita unirse a %s.", who, t.Name),
		Link:      fmt.Sprintf("/tenants/%s/join-requests/%s", t.ID, req.ID),
		CreatedBy: p.UserID,
	})
	log.Info().Str("tenant_id", t.ID).Str("join_request_id", req.ID).Msg("solicitud de ingreso creada")
	return toJoinResponse(req, t.Name, true), nil
}

// ListPending solicitudes pendientes del tenant; sólo administradores.
func (uc *JoinUseCase) ListPending(ctx context.Context, p entity.Principal, tenantID string) ([]*dto.JoinRequestResponse, error) {
	if _, err := requireAdmin(ctx, uc.Memberships, p.UserID, tenantID); err != nil {
		return nil, err
	}
	list, err := uc.Joins.ListPending(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.JoinRequestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, toJoinResponse(r, "", false))
	}
	return out, nil
}

// Review aprueba o rechaza una solicitud pendiente. Aprobar crea la membresía EMPLOYEE;
// rechazar inicia la espera antes de poder volver a solicitar.
func (uc *JoinUseCase) Review(ctx context.Context, p entity.Principal, requestID string, in dto.ReviewJoinRequest) (*dto.JoinRequestResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	req, err := uc.Joins.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: solicitud inexistente", domain.ErrNotFound)
	}
	if _, err := requireAdmin(ctx, uc.Memberships, p.UserID, req.TenantID); err != nil {
		return nil, err
	}
	if req.Status != entity.JoinStatusPending {
		return nil, fmt.Errorf("%w: la solicitud ya fue revisada", domain.ErrConflict)
	}

	now := uc.now().UTC()
	req.ReviewedBy = p.UserID
	req.ReviewedAt = &now
	req.UpdatedAt = now
	req.Status = entity.JoinStatusRejected
	if in.Decision == "APPROVE" {
		req.Status = entity.JoinStatusApproved
	}

	ok, err := uc.Joins.Resolve(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resolver solicitud: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: la solicitud ya fue revisada", domain.ErrConflict)
	}

	if req.Status == entity.JoinStatusApproved {
		if err := uc.admit(ctx, req, now); err != nil {
			uc.Metrics.SagaOutcome(flowReview, "compensated", 0)
			return nil, err
		}
	}
	uc.Metrics.SagaOutcome(flowReview, "ok", 0)

	title, msg := "Solicitud rechazada", "Tu solicitud de ingreso fue rechazada."
	if req.Status == entity.JoinStatusApproved {
		title, msg = "Solicitud aprobada", "Tu solicitud de ingreso fue aprobada."
	}
	uc.Notifier.Publish(ctx, notification.Event{
		TenantID:   req.TenantID,
		Category:   entity.NotificationJoinRequest,
		Title:      title,
		Message:    msg,
		CreatedBy:  p.UserID,
		Recipients: []string{req.UserID},
	})
	return toJoinResponse(req, "", false), nil
}

// admit crea la membresía del solicitante; si falla, la solicitud vuelve a PENDING.
func (uc *JoinUseCase) admit(ctx context.Context, req *entity.JoinRequest, now time.Time) error {
	undo := saga.New(flowReview, uc.Log, uc.Metrics, uc.cfg.StepTimeout)
	undo.Push("join_request_status", func(ctx context.Context) error { return uc.Joins.Reopen(ctx, req.ID) })

	existing, err := uc.Memberships.ListByUser(ctx, req.UserID)
	if err != nil {
		undo.Unwind(ctx)
		return domain.SecondaryWrite("membership_lookup", err)
	}
	m := &entity.UserTenantRole{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		TenantID:  req.TenantID,
		Role:      entity.RoleEmployee,
		IsDefault: !hasDefault(existing),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := saga.Run(ctx, uc.cfg.StepTimeout, func(ctx context.Context) error { return uc.Memberships.Create(ctx, m) }); err != nil {
		undo.Unwind(ctx)
		return domain.SecondaryWrite("membership", err)
	}
	return nil
}

func hasDefault(list []*entity.UserTenantRole) bool {
	for _, m := range list {
		if m.IsDefault {
			return true
		}
	}
	return false
}

func toJoinResponse(r *entity.JoinRequest, tenantName string, created bool) *dto.JoinRequestResponse {
	return &dto.JoinRequestResponse{
		ID:         r.ID,
		TenantID:   r.TenantID,
		TenantName: tenantName,
		UserID:     r.UserID,
		Status:     r.Status,
		Created:    created,
		CreatedAt:  r.CreatedAt,
		ReviewedAt: r.ReviewedAt,
	}
}
