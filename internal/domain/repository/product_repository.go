package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

// ProductRepository puerto de persistencia para Product.
type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetByTenantAndSKU(ctx context.Context, tenantID, sku string) (*entity.Product, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Product, error)
	// UpdateCost fija el costo promedio; se usa dentro de la transacción de una ENTRADA.
	UpdateCost(ctx context.Context, id string, cost decimal.Decimal) error
}

// CustomerRepository puerto de clientes.
type CustomerRepository interface {
	Create(ctx context.Context, c *entity.Customer) error
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	GetByTenantAndTaxID(ctx context.Context, tenantID, taxID string) (*entity.Customer, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Customer, error)
}
