package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

var (
	_ repository.TenantRepository       = (*Tenants)(nil)
	_ repository.StoreRepository        = (*Stores)(nil)
	_ repository.SubscriptionRepository = (*Subscriptions)(nil)
	_ repository.MembershipRepository   = (*Memberships)(nil)
	_ repository.UserProfileRepository  = (*Profiles)(nil)
)

// Tenants espejo de tenants en memoria.
type Tenants struct{ db *DB }

// Tenants devuelve el repositorio.
func (db *DB) Tenants() *Tenants { return &Tenants{db: db} }

func (r *Tenants) Create(_ context.Context, t *entity.Tenant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("tenants.Create"); err != nil {
		return err
	}
	for _, other := range r.db.tenants {
		if other.TaxID == t.TaxID || other.NameKey == t.NameKey {
			return domain.ErrDuplicate
		}
	}
	c := *t
	r.db.tenants[t.ID] = &c
	r.db.writes++
	return nil
}

func (r *Tenants) GetByID(_ context.Context, id string) (*entity.Tenant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if t, ok := r.db.tenants[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (r *Tenants) GetByExternalID(_ context.Context, externalID string) (*entity.Tenant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.tenants {
		if t.ExternalID == externalID {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (r *Tenants) FindConflicts(_ context.Context, taxID, nameKey string) ([]*entity.Tenant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("tenants.FindConflicts"); err != nil {
		return nil, err
	}
	var out []*entity.Tenant
	for _, t := range r.db.tenants {
		if t.TaxID == taxID || t.NameKey == nameKey {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *Tenants) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("tenants.Delete"); err != nil {
		return err
	}
	delete(r.db.tenants, id)
	return nil
}

// Stores tiendas en memoria.
type Stores struct{ db *DB }

// Stores devuelve el repositorio.
func (db *DB) Stores() *Stores { return &Stores{db: db} }

func (r *Stores) Create(_ context.Context, s *entity.Store) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("stores.Create"); err != nil {
		return err
	}
	c := *s
	r.db.stores[s.ID] = &c
	r.db.writes++
	return nil
}

func (r *Stores) GetByID(_ context.Context, id string) (*entity.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if s, ok := r.db.stores[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (r *Stores) ListByTenant(_ context.Context, tenantID string) ([]*entity.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Store
	for _, s := range r.db.stores {
		if s.TenantID == tenantID {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Stores) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	list, err := r.ListByTenant(ctx, tenantID)
	return len(list), err
}

func (r *Stores) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("stores.Delete"); err != nil {
		return err
	}
	delete(r.db.stores, id)
	return nil
}

// Subscriptions suscripciones en memoria.
type Subscriptions struct{ db *DB }

// Subscriptions devuelve el repositorio.
func (db *DB) Subscriptions() *Subscriptions { return &Subscriptions{db: db} }

func (r *Subscriptions) Create(_ context.Context, s *entity.Subscription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("subscriptions.Create"); err != nil {
		return err
	}
	c := *s
	r.db.subscriptions[s.ID] = &c
	r.db.writes++
	return nil
}

func (r *Subscriptions) GetByTenant(_ context.Context, tenantID string) (*entity.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.subscriptions {
		if s.TenantID == tenantID {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (r *Subscriptions) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.subscriptions, id)
	return nil
}

// Memberships membresías en memoria.
type Memberships struct{ db *DB }

// Memberships devuelve el repositorio.
func (db *DB) Memberships() *Memberships { return &Memberships{db: db} }

func (r *Memberships) Create(_ context.Context, m *entity.UserTenantRole) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("memberships.Create"); err != nil {
		return err
	}
	for _, o := range r.db.memberships {
		if o.UserID == m.UserID && o.TenantID == m.TenantID {
			return domain.ErrDuplicate
		}
	}
	c := *m
	r.db.memberships[m.ID] = &c
	r.db.writes++
	return nil
}

func (r *Memberships) Get(_ context.Context, userID, tenantID string) (*entity.UserTenantRole, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.memberships {
		if m.UserID == userID && m.TenantID == tenantID {
			c := *m
			return &c, nil
		}
	}
	return nil, nil
}

func (r *Memberships) ListByUser(_ context.Context, userID string) ([]*entity.UserTenantRole, error) {
	return r.db.MembershipsOf(userID), nil
}

func (r *Memberships) ListAdmins(_ context.Context, tenantID string) ([]*entity.UserTenantRole, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("memberships.ListAdmins"); err != nil {
		return nil, err
	}
	var out []*entity.UserTenantRole
	for _, m := range r.db.memberships {
		if m.TenantID == tenantID && m.Role == entity.RoleAdministrator {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *Memberships) DemoteOthers(_ context.Context, userID, keepID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("memberships.DemoteOthers"); err != nil {
		return nil, err
	}
	var ids []string
	for _, m := range r.db.memberships {
		if m.UserID == userID && m.ID != keepID && m.IsDefault {
			m.IsDefault = false
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

func (r *Memberships) SetDefault(_ context.Context, id string, isDefault bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if m, ok := r.db.memberships[id]; ok {
		m.IsDefault = isDefault
	}
	return nil
}

func (r *Memberships) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("memberships.Delete"); err != nil {
		return err
	}
	delete(r.db.memberships, id)
	return nil
}

// Profiles perfiles en memoria.
type Profiles struct{ db *DB }

// Profiles devuelve el repositorio.
func (db *DB) Profiles() *Profiles { return &Profiles{db: db} }

func (r *Profiles) Upsert(_ context.Context, p *entity.UserProfile) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("profiles.Upsert"); err != nil {
		return false, err
	}
	existing, ok := r.db.profiles[p.UserID]
	c := *p
	if ok {
		c.CreatedAt = existing.CreatedAt
	}
	r.db.profiles[p.UserID] = &c
	r.db.writes++
	return !ok, nil
}

func (r *Profiles) Get(_ context.Context, userID string) (*entity.UserProfile, error) {
	return r.db.Profile(userID), nil
}

func (r *Profiles) Delete(_ context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.profiles, userID)
	return nil
}
