package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/application/notification"
	"github.com/jhoicas/comercio-api/internal/application/saga"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
	"github.com/jhoicas/comercio-api/pkg/normalize"
)

const flowProvision = "provision_tenant"

// ProvisionDeps dependencias del aprovisionamiento.
type ProvisionDeps struct {
	Primary       repository.PrimaryStore
	Tenants       repository.TenantRepository
	Stores        repository.StoreRepository
	Subscriptions repository.SubscriptionRepository
	Memberships   repository.MembershipRepository
	Profiles      repository.UserProfileRepository
	Locker        Locker
	Notifier      Notifier
	Metrics       Metrics
	Log           zerolog.Logger
}

// ProvisionUseCase crea un tenant con su tienda por defecto en el almacén principal
// y lo refleja en el relacional. Si el reflejo falla, deshace todo lo escrito.
type ProvisionUseCase struct {
	ProvisionDeps
	cfg Config
	now func() time.Time
}

// NewProvisionUseCase construye el caso de uso.
func NewProvisionUseCase(deps ProvisionDeps, cfg Config) *ProvisionUseCase {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &ProvisionUseCase{ProvisionDeps: deps, cfg: cfg, now: time.Now}
}

type tenantInput struct {
	name      string
	nameKey   string
	taxID     string
	email     string
	phone     string
	address   string
	storeName string
}

// Provision ejecuta el aprovisionamiento completo para el usuario autenticado.
func (uc *ProvisionUseCase) Provision(ctx context.Context, p entity.Principal, in dto.ProvisionTenantRequest) (*dto.ProvisionTenantResponse, error) {
	start := uc.now()
	res, err := uc.provision(ctx, p, in)
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrDuplicate):
		outcome = "rejected"
	case errors.Is(err, domain.ErrSecondaryWrite):
		outcome = "compensated"
	default:
		outcome = "failed"
	}
	uc.Metrics.SagaOutcome(flowProvision, outcome, uc.now().Sub(start))
	return res, err
}

func (uc *ProvisionUseCase) provision(ctx context.Context, p entity.Principal, in dto.ProvisionTenantRequest) (*dto.ProvisionTenantResponse, error) {
	if err := uc.checkConfig(); err != nil {
		return nil, err
	}
	if p.UserID == "" {
		return nil, fmt.Errorf("%w: identidad requerida", domain.ErrUnauthorized)
	}
	input, err := uc.normalizeInput(in)
	if err != nil {
		return nil, err
	}
	log := uc.Log.With().Str("user_id", p.UserID).Str("tax_id", input.taxID).Logger()

	lock, err := uc.Locker.Obtain(ctx, "tenant:"+input.taxID, uc.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn().Err(rerr).Msg("no se pudo liberar el candado de aprovisionamiento")
		}
	}()

	if err := uc.checkUniqueness(ctx, input); err != nil {
		return nil, err
	}

	securityCode, err := newSecurityCode(uc.cfg.SecurityCodeLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	now := uc.now().UTC()

	var tenantDocID, storeDocID string
	err = uc.Primary.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := uc.Primary.FindTenantByTaxID(txCtx, input.taxID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.NewDuplicateError(domain.FieldError{Field: "tax_id", Message: "ya existe un tenant con este NIT"})
		}
		tid, err := uc.Primary.InsertTenant(txCtx, &entity.TenantRecord{
			Name:         input.name,
			TaxID:        input.taxID,
			SecurityCode: securityCode,
			ContactEmail: input.email,
			ContactPhone: input.phone,
			Address:      input.address,
			CreatedBy:    p.UserID,
			CreatedAt:    now,
		})
		if err != nil {
			return err
		}
		if tid == "" {
			return errors.New("el almacén principal no devolvió id de tenant")
		}
		sid, err := uc.Primary.InsertStore(txCtx, &entity.StoreRecord{
			TenantID:  tid,
			Name:      input.storeName,
			Address:   input.address,
			Phone:     input.phone,
			IsDefault: true,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if sid == "" {
			return errors.New("el almacén principal no devolvió id de tienda")
		}
		tenantDocID, storeDocID = tid, sid
		return nil
	})
	if err != nil {
		if domain.IsDomainError(err) {
			return nil, err
		}
		log.Error().Err(err).Msg("transacción en almacén principal fallida")
		return nil, domain.PrimaryWrite("tenant_transaction", err)
	}

	undo := saga.New(flowProvision, log, uc.Metrics, uc.cfg.StepTimeout)
	undo.Push("primary_tenant", func(ctx context.Context) error { return uc.Primary.DeleteTenant(ctx, tenantDocID) })
	undo.Push("primary_store", func(ctx context.Context) error { return uc.Primary.DeleteStore(ctx, storeDocID) })

	res, err := uc.mirror(ctx, undo, p, input, securityCode, tenantDocID, storeDocID, now)
	if err != nil {
		failures := undo.Unwind(ctx)
		log.Error().Err(err).Int("compensation_failures", len(failures)).Msg("aprovisionamiento revertido")
		if errors.Is(err, domain.ErrDuplicate) {
			if dup := uc.checkUniqueness(context.WithoutCancel(ctx), input); dup != nil {
				return nil, dup
			}
		}
		return nil, err
	}
	res.SecurityCode = securityCode

	uc.Notifier.Publish(ctx, notification.Event{
		TenantID:  res.TenantID,
		Category:  entity.NotificationTenant,
		Title:     "Empresa registrada",
		Message:   fmt.Sprintf("%s quedó registrada con la tienda %s.", input.name, input.storeName),
		Link:      res.Redirect,
		CreatedBy: p.UserID,
	})
	log.Info().Str("tenant_id", res.TenantID).Str("store_id", res.StoreID).Msg("tenant aprovisionado")
	return res, nil
}

// mirror escribe el espejo relacional registrando cada compensación en undo.
func (uc *ProvisionUseCase) mirror(ctx context.Context, undo *saga.UndoStack, p entity.Principal, in tenantInput, securityCode, tenantDocID, storeDocID string, now time.Time) (*dto.ProvisionTenantResponse, error) {
	step := func(name string, fn func(ctx context.Context) error) error {
		if err := saga.Run(ctx, uc.cfg.StepTimeout, fn); err != nil {
			return domain.SecondaryWrite(name, err)
		}
		return nil
	}

	t := &entity.Tenant{
		ID:                 uuid.New().String(),
		ExternalID:         tenantDocID,
		Name:               in.name,
		NameKey:            in.nameKey,
		TaxID:              in.taxID,
		SecurityCode:       securityCode,
		ContactEmail:       in.email,
		ContactPhone:       in.phone,
		Address:            in.address,
		RegistrationStatus: entity.TenantStatusActive,
		CreatedBy:          p.UserID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := step("tenant_mirror", func(ctx context.Context) error { return uc.Tenants.Create(ctx, t) }); err != nil {
		return nil, err
	}
	undo.Push("tenant_mirror", func(ctx context.Context) error { return uc.Tenants.Delete(ctx, t.ID) })

	m := &entity.UserTenantRole{
		ID:        uuid.New().String(),
		UserID:    p.UserID,
		TenantID:  t.ID,
		Role:      entity.RoleAdministrator,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// el índice de membresía default única exige quitar las anteriores antes de insertar
	var demoted []string
	err := step("default_membership", func(ctx context.Context) error {
		var err error
		demoted, err = uc.Memberships.DemoteOthers(ctx, p.UserID, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(demoted) > 0 {
		undo.Push("default_membership", func(ctx context.Context) error {
			for _, id := range demoted {
				if err := uc.Memberships.SetDefault(ctx, id, true); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := step("membership", func(ctx context.Context) error { return uc.Memberships.Create(ctx, m) }); err != nil {
		return nil, err
	}
	undo.Push("membership", func(ctx context.Context) error { return uc.Memberships.Delete(ctx, m.ID) })

	var created bool
	err = step("user_profile", func(ctx context.Context) error {
		var err error
		created, err = uc.Profiles.Upsert(ctx, &entity.UserProfile{
			UserID: p.UserID, Email: p.Email, Name: p.Name, Phone: p.Phone,
			CreatedAt: now, UpdatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if created {
		undo.Push("user_profile", func(ctx context.Context) error { return uc.Profiles.Delete(ctx, p.UserID) })
	}

	store := &entity.Store{
		ID:         uuid.New().String(),
		TenantID:   t.ID,
		ExternalID: storeDocID,
		Name:       in.storeName,
		Address:    in.address,
		Phone:      in.phone,
		IsDefault:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	sub := &entity.Subscription{
		ID:           uuid.New().String(),
		TenantID:     t.ID,
		Plan:         uc.cfg.Plan,
		Status:       entity.SubscriptionActive,
		StoreLimit:   uc.cfg.StoreLimit,
		UserLimit:    uc.cfg.UserLimit,
		InvoiceLimit: uc.cfg.InvoiceLimit,
		StartedAt:    now,
		CreatedAt:    now,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := saga.Run(gctx, uc.cfg.StepTimeout, func(ctx context.Context) error { return uc.Subscriptions.Create(ctx, sub) }); err != nil {
			return domain.SecondaryWrite("subscription", err)
		}
		undo.Push("subscription", func(ctx context.Context) error { return uc.Subscriptions.Delete(ctx, sub.ID) })
		return nil
	})
	g.Go(func() error {
		if err := saga.Run(gctx, uc.cfg.StepTimeout, func(ctx context.Context) error { return uc.Stores.Create(ctx, store) }); err != nil {
			return domain.SecondaryWrite("store_mirror", err)
		}
		undo.Push("store_mirror", func(ctx context.Context) error { return uc.Stores.Delete(ctx, store.ID) })
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &dto.ProvisionTenantResponse{
		TenantID:         t.ID,
		StoreID:          store.ID,
		ExternalTenantID: tenantDocID,
		ExternalStoreID:  storeDocID,
		Redirect:         fmt.Sprintf("/tenants/%s/stores/%s", t.ID, store.ID),
	}, nil
}

func (uc *ProvisionUseCase) checkConfig() error {
	switch {
	case uc.Primary == nil:
		return fmt.Errorf("%w: almacén principal no configurado", domain.ErrConfiguration)
	case uc.Locker == nil:
		return fmt.Errorf("%w: candado de aprovisionamiento no configurado", domain.ErrConfiguration)
	case uc.cfg.SecurityCodeLength < 6:
		return fmt.Errorf("%w: longitud de código de seguridad insuficiente", domain.ErrConfiguration)
	case uc.cfg.Plan == "" || uc.cfg.StoreLimit < 1:
		return fmt.Errorf("%w: plan por defecto incompleto", domain.ErrConfiguration)
	}
	return nil
}

// normalizeInput recorta, valida y normaliza la entrada. Reporta todos los campos a la vez.
func (uc *ProvisionUseCase) normalizeInput(in dto.ProvisionTenantRequest) (tenantInput, error) {
	in.Name = normalize.DisplayName(in.Name)
	in.TaxID = normalize.TaxID(in.TaxID)
	in.ContactEmail = strings.ToLower(strings.TrimSpace(in.ContactEmail))
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	in.Address = strings.TrimSpace(in.Address)
	in.StoreName = normalize.DisplayName(in.StoreName)

	fields := domain.NewValidationError()
	var verrs *domain.FieldErrors
	if err := dto.Validate(in); err != nil && errors.As(err, &verrs) {
		for _, f := range verrs.Fields {
			fields.Add(f.Field, f.Message)
		}
	}
	var phone string
	if in.ContactPhone != "" {
		var err error
		phone, err = normalize.Phone(in.ContactPhone, uc.cfg.PhoneRegion)
		if err != nil {
			fields.Add("contact_phone", "no es un número de teléfono válido")
		}
	}
	if in.TaxID != "" && uc.cfg.VerifyTaxIDDigit {
		if err := normalize.ValidateNITVerificationDigit(in.TaxID); err != nil {
			fields.Add("tax_id", err.Error())
		}
	}
	if err := fields.OrNil(); err != nil {
		return tenantInput{}, err
	}
	storeName := in.StoreName
	if storeName == "" {
		storeName = uc.cfg.DefaultStoreName
	}
	return tenantInput{
		name:      in.Name,
		nameKey:   normalize.NameKey(in.Name),
		taxID:     in.TaxID,
		email:     in.ContactEmail,
		phone:     phone,
		address:   in.Address,
		storeName: storeName,
	}, nil
}

// checkUniqueness rechaza si otro tenant comparte NIT o nombre; ambas coincidencias se reportan.
func (uc *ProvisionUseCase) checkUniqueness(ctx context.Context, in tenantInput) error {
	rows, err := uc.Tenants.FindConflicts(ctx, in.taxID, in.nameKey)
	if err != nil {
		return fmt.Errorf("verificar unicidad: %w", err)
	}
	dup := domain.NewDuplicateError()
	for _, t := range rows {
		if t.TaxID == in.taxID {
			dup.Add("tax_id", "ya existe un tenant con este NIT")
		}
		if t.NameKey == in.nameKey {
			dup.Add("name", "ya existe un tenant con este nombre")
		}
	}
	return dup.OrNil()
}
