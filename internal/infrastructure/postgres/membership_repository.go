package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

var (
	_ repository.MembershipRepository  = (*MembershipRepo)(nil)
	_ repository.UserProfileRepository = (*ProfileRepo)(nil)
)

// MembershipRepo membresías usuario-tenant (user_tenant_roles).
type MembershipRepo struct {
	q Querier
}

// NewMembershipRepository construye el adaptador.
func NewMembershipRepository(q Querier) *MembershipRepo {
	return &MembershipRepo{q: q}
}

const membershipColumns = `id, user_id, tenant_id, role, is_default, created_at, updated_at`

// Create persiste la membresía. Par (usuario, tenant) repetido o segundo default: domain.ErrDuplicate.
func (r *MembershipRepo) Create(ctx context.Context, m *entity.UserTenantRole) error {
	query := `INSERT INTO user_tenant_roles (` + membershipColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query, m.ID, m.UserID, m.TenantID, m.Role, m.IsDefault, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (r *MembershipRepo) Get(ctx context.Context, userID, tenantID string) (*entity.UserTenantRole, error) {
	query := `SELECT ` + membershipColumns + ` FROM user_tenant_roles WHERE user_id = $1 AND tenant_id = $2`
	m, err := scanMembership(r.q.QueryRow(ctx, query, userID, tenantID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (r *MembershipRepo) ListByUser(ctx context.Context, userID string) ([]*entity.UserTenantRole, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM user_tenant_roles WHERE user_id = $1 ORDER BY is_default DESC, created_at`, userID)
}

func (r *MembershipRepo) ListAdmins(ctx context.Context, tenantID string) ([]*entity.UserTenantRole, error) {
	query := `SELECT ` + membershipColumns + ` FROM user_tenant_roles WHERE tenant_id = $1 AND role = $2 ORDER BY created_at`
	return r.list(ctx, query, tenantID, entity.RoleAdministrator)
}

func (r *MembershipRepo) list(ctx context.Context, query string, args ...any) ([]*entity.UserTenantRole, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()
	var list []*entity.UserTenantRole
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// DemoteOthers quita el default a las demás membresías del usuario y devuelve cuáles cambiaron.
func (r *MembershipRepo) DemoteOthers(ctx context.Context, userID, keepID string) ([]string, error) {
	query := `
		UPDATE user_tenant_roles SET is_default = FALSE, updated_at = now()
		WHERE user_id = $1 AND id <> $2 AND is_default
		RETURNING id`
	rows, err := r.q.Query(ctx, query, userID, keepID)
	if err != nil {
		return nil, fmt.Errorf("demote memberships: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MembershipRepo) SetDefault(ctx context.Context, id string, isDefault bool) error {
	_, err := r.q.Exec(ctx, `UPDATE user_tenant_roles SET is_default = $2, updated_at = now() WHERE id = $1`, id, isDefault)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("set default membership: %w", err)
	}
	return nil
}

func (r *MembershipRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM user_tenant_roles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

func scanMembership(row pgxScanner) (*entity.UserTenantRole, error) {
	var m entity.UserTenantRole
	if err := row.Scan(&m.ID, &m.UserID, &m.TenantID, &m.Role, &m.IsDefault, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// ProfileRepo perfiles de usuario.
type ProfileRepo struct {
	q Querier
}

// NewProfileRepository construye el adaptador.
func NewProfileRepository(q Querier) *ProfileRepo {
	return &ProfileRepo{q: q}
}

// Upsert inserta o actualiza el perfil. xmax = 0 distingue la inserción de la actualización.
func (r *ProfileRepo) Upsert(ctx context.Context, p *entity.UserProfile) (bool, error) {
	query := `
		INSERT INTO user_profiles (user_id, email, name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, phone = EXCLUDED.phone, updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`
	var created bool
	err := r.q.QueryRow(ctx, query,
		p.UserID, nullIfEmpty(p.Email), nullIfEmpty(p.Name), nullIfEmpty(p.Phone), p.CreatedAt, p.UpdatedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert profile: %w", err)
	}
	return created, nil
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (*entity.UserProfile, error) {
	var (
		p                  entity.UserProfile
		email, name, phone *string
	)
	err := r.q.QueryRow(ctx,
		`SELECT user_id, email, name, phone, created_at, updated_at FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &email, &name, &phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.Email, p.Name, p.Phone = fromNull(email), fromNull(name), fromNull(phone)
	return &p, nil
}

func (r *ProfileRepo) Delete(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM user_profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
