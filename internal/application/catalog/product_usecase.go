package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

var hundred = decimal.NewFromInt(100)

// ProductUseCase alta y consulta de productos. Cost y stock se manejan vía movimientos.
type ProductUseCase struct {
	repo repository.ProductRepository
	now  func() time.Time
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo, now: time.Now}
}

// Create crea un producto del tenant. El SKU es único por tenant.
func (uc *ProductUseCase) Create(ctx context.Context, tenantID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant requerido", domain.ErrUnauthorized)
	}
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateProduct(in); err != nil {
		return nil, err
	}
	existing, err := uc.repo.GetByTenantAndSKU(ctx, tenantID, in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewDuplicateError(domain.FieldError{Field: "sku", Message: "ya existe un producto con este SKU"})
	}

	now := uc.now().UTC()
	product := &entity.Product{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		SKU:               in.SKU,
		Barcode:           in.Barcode,
		Name:              in.Name,
		Description:       in.Description,
		Price:             in.Price,
		Cost:              in.Cost,
		MinStock:          in.MinStock,
		DiscountStartDate: in.DiscountStartDate,
		DiscountEndDate:   in.DiscountEndDate,
		ExpirationDate:    in.ExpirationDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.Discount != nil {
		product.Discount = *in.Discount
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.NewDuplicateError(domain.FieldError{Field: "sku", Message: "ya existe un producto con este SKU"})
		}
		return nil, err
	}
	return uc.toResponse(product), nil
}

// GetByID obtiene un producto del tenant.
func (uc *ProductUseCase) GetByID(ctx context.Context, tenantID, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.TenantID != tenantID {
		return nil, fmt.Errorf("%w: producto inexistente", domain.ErrNotFound)
	}
	return uc.toResponse(product), nil
}

// List lista productos del tenant.
func (uc *ProductUseCase) List(ctx context.Context, tenantID string, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.ListByTenant(ctx, tenantID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.ProductListResponse{
		Items: make([]dto.ProductResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, p := range list {
		out.Items = append(out.Items, *uc.toResponse(p))
	}
	return out, nil
}

func validateProduct(in dto.CreateProductRequest) error {
	fe := domain.NewValidationError()
	if err := dto.Validate(in); err != nil {
		verr, ok := err.(*domain.FieldErrors)
		if !ok {
			return err
		}
		fe = verr
	}
	if in.Price.IsNegative() {
		fe.Add("price", "no puede ser negativo")
	}
	if in.Cost.IsNegative() {
		fe.Add("cost", "no puede ser negativo")
	}
	if in.Discount != nil && (in.Discount.IsNegative() || in.Discount.GreaterThan(hundred)) {
		fe.Add("discount", "debe estar entre 0 y 100")
	}
	if in.Discount != nil && in.Discount.IsPositive() && (in.DiscountStartDate == nil || in.DiscountEndDate == nil) {
		fe.Add("discount_end_date", "el descuento requiere fechas de inicio y fin")
	}
	if in.DiscountStartDate != nil && in.DiscountEndDate != nil && in.DiscountEndDate.Before(*in.DiscountStartDate) {
		fe.Add("discount_end_date", "debe ser posterior a la fecha de inicio")
	}
	return fe.OrNil()
}

func (uc *ProductUseCase) toResponse(p *entity.Product) *dto.ProductResponse {
	out := &dto.ProductResponse{
		ID:                p.ID,
		TenantID:          p.TenantID,
		SKU:               p.SKU,
		Barcode:           p.Barcode,
		Name:              p.Name,
		Description:       p.Description,
		Price:             p.Price,
		EffectivePrice:    p.EffectivePrice(uc.now()),
		Cost:              p.Cost,
		MinStock:          p.MinStock,
		DiscountStartDate: p.DiscountStartDate,
		DiscountEndDate:   p.DiscountEndDate,
		ExpirationDate:    p.ExpirationDate,
		CreatedAt:         p.CreatedAt,
	}
	if p.Discount.IsPositive() {
		d := p.Discount
		out.Discount = &d
	}
	return out
}
