package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

var (
	_ repository.ProductRepository  = (*Products)(nil)
	_ repository.CustomerRepository = (*Customers)(nil)
)

// Products catálogo en memoria.
type Products struct{ db *DB }

// Products devuelve el repositorio.
func (db *DB) Products() *Products { return &Products{db: db} }

func (r *Products) Create(_ context.Context, p *entity.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, o := range r.db.products {
		if o.TenantID == p.TenantID && o.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	c := *p
	r.db.products[p.ID] = &c
	return nil
}

func (r *Products) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.products[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (r *Products) GetByTenantAndSKU(_ context.Context, tenantID, sku string) (*entity.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.products {
		if p.TenantID == tenantID && p.SKU == sku {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (r *Products) ListByTenant(_ context.Context, tenantID string, limit, offset int) ([]*entity.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []*entity.Product
	for _, p := range r.db.products {
		if p.TenantID == tenantID {
			c := *p
			all = append(all, &c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, limit, offset), nil
}

// Customers clientes en memoria.
type Customers struct{ db *DB }

func (r *Products) UpdateCost(_ context.Context, id string, cost decimal.Decimal) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("products.UpdateCost"); err != nil {
		return err
	}
	p, ok := r.db.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Cost = cost
	p.UpdatedAt = r.db.now()
	r.db.writes++
	return nil
}

// Customers devuelve el repositorio.
func (db *DB) Customers() *Customers { return &Customers{db: db} }

func (r *Customers) Create(_ context.Context, c *entity.Customer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, o := range r.db.customers {
		if o.TenantID == c.TenantID && o.TaxID == c.TaxID {
			return domain.ErrDuplicate
		}
	}
	cp := *c
	r.db.customers[c.ID] = &cp
	return nil
}

func (r *Customers) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if c, ok := r.db.customers[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *Customers) GetByTenantAndTaxID(_ context.Context, tenantID, taxID string) (*entity.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.customers {
		if c.TenantID == tenantID && c.TaxID == taxID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *Customers) ListByTenant(_ context.Context, tenantID string, limit, offset int) ([]*entity.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []*entity.Customer
	for _, c := range r.db.customers {
		if c.TenantID == tenantID {
			cp := *c
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, limit, offset), nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
