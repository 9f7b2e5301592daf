package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
	"github.com/jhoicas/comercio-api/pkg/normalize"
)

// CustomerUseCase casos de uso para clientes (facturación en caja).
type CustomerUseCase struct {
	repo        repository.CustomerRepository
	phoneRegion string
}

// NewCustomerUseCase construye el caso de uso. phoneRegion es la región por defecto
// para normalizar teléfonos ("CO").
func NewCustomerUseCase(repo repository.CustomerRepository, phoneRegion string) *CustomerUseCase {
	return &CustomerUseCase{repo: repo, phoneRegion: phoneRegion}
}

// Create crea un nuevo cliente. El documento se guarda canónico y es único por tenant.
func (uc *CustomerUseCase) Create(ctx context.Context, tenantID string, in dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant requerido", domain.ErrUnauthorized)
	}
	fe := domain.NewValidationError()
	if err := dto.Validate(in); err != nil {
		verr, ok := err.(*domain.FieldErrors)
		if !ok {
			return nil, err
		}
		fe = verr
	}
	phone := ""
	if strings.TrimSpace(in.Phone) != "" {
		p, err := normalize.Phone(in.Phone, uc.phoneRegion)
		if err != nil {
			fe.Add("phone", "no es un teléfono válido")
		}
		phone = p
	}
	if err := fe.OrNil(); err != nil {
		return nil, err
	}

	taxID := normalize.TaxID(in.TaxID)
	existing, err := uc.repo.GetByTenantAndTaxID(ctx, tenantID, taxID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewDuplicateError(domain.FieldError{Field: "tax_id", Message: "ya existe un cliente con este documento"})
	}
	now := time.Now().UTC()
	customer := &entity.Customer{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      normalize.DisplayName(in.Name),
		TaxID:     taxID,
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, customer); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.NewDuplicateError(domain.FieldError{Field: "tax_id", Message: "ya existe un cliente con este documento"})
		}
		return nil, err
	}
	return toCustomerResponse(customer), nil
}

// List lista clientes del tenant.
func (uc *CustomerUseCase) List(ctx context.Context, tenantID string, page dto.PageRequest) ([]*dto.CustomerResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.ListByTenant(ctx, tenantID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CustomerResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCustomerResponse(c))
	}
	return out, nil
}

func toCustomerResponse(c *entity.Customer) *dto.CustomerResponse {
	return &dto.CustomerResponse{
		ID:       c.ID,
		TenantID: c.TenantID,
		Name:     c.Name,
		TaxID:    c.TaxID,
		Email:    c.Email,
		Phone:    c.Phone,
	}
}
