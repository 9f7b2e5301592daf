package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

// Asegura que TenantRepo implementa repository.TenantRepository.
var _ repository.TenantRepository = (*TenantRepo)(nil)

// TenantRepo espejo relacional de tenants sobre PostgreSQL.
type TenantRepo struct {
	q Querier
}

// NewTenantRepository construye el adaptador de persistencia para tenants.
func NewTenantRepository(q Querier) *TenantRepo {
	return &TenantRepo{q: q}
}

const tenantColumns = `id, external_id, name, name_key, tax_id, security_code, contact_email, contact_phone, address,
	registration_status, created_by, created_at, updated_at`

// Create persiste el espejo. Una carrera con otro aprovisionamiento termina en domain.ErrDuplicate.
func (r *TenantRepo) Create(ctx context.Context, t *entity.Tenant) error {
	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.ExternalID, t.Name, t.NameKey, t.TaxID, t.SecurityCode,
		nullIfEmpty(t.ContactEmail), nullIfEmpty(t.ContactPhone), nullIfEmpty(t.Address),
		t.RegistrationStatus, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// GetByID obtiene un tenant por ID.
func (r *TenantRepo) GetByID(ctx context.Context, id string) (*entity.Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
}

// GetByExternalID obtiene el espejo a partir del ID del documento principal.
func (r *TenantRepo) GetByExternalID(ctx context.Context, externalID string) (*entity.Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE external_id = $1`, externalID)
}

func (r *TenantRepo) getOne(ctx context.Context, query string, arg string) (*entity.Tenant, error) {
	t, err := scanTenant(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

// FindConflicts devuelve cada tenant que coincide por NIT o por nombre normalizado.
func (r *TenantRepo) FindConflicts(ctx context.Context, taxID, nameKey string) ([]*entity.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE tax_id = $1 OR name_key = $2 ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, taxID, nameKey)
	if err != nil {
		return nil, fmt.Errorf("find tenant conflicts: %w", err)
	}
	defer rows.Close()
	var list []*entity.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Delete elimina el espejo (compensación). Borrar algo inexistente no es error.
func (r *TenantRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	return nil
}

func scanTenant(row pgxScanner) (*entity.Tenant, error) {
	var (
		t                     entity.Tenant
		email, phone, address *string
	)
	if err := row.Scan(
		&t.ID, &t.ExternalID, &t.Name, &t.NameKey, &t.TaxID, &t.SecurityCode, &email, &phone, &address,
		&t.RegistrationStatus, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.ContactEmail, t.ContactPhone, t.Address = fromNull(email), fromNull(phone), fromNull(address)
	return &t, nil
}
