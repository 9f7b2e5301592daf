package repository

import (
	"context"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

// PrimaryStore puerto del almacén de documentos que guarda los registros maestros.
//
// WithTransaction ejecuta fn en una transacción multi-documento: las llamadas hechas
// con el txCtx recibido participan en ella y se confirman juntas al retornar nil.
type PrimaryStore interface {
	WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
	FindTenantByTaxID(ctx context.Context, taxID string) (*entity.TenantRecord, error)
	GetTenant(ctx context.Context, id string) (*entity.TenantRecord, error)
	InsertTenant(ctx context.Context, t *entity.TenantRecord) (string, error)
	InsertStore(ctx context.Context, s *entity.StoreRecord) (string, error)
	DeleteTenant(ctx context.Context, id string) error
	DeleteStore(ctx context.Context, id string) error
}
