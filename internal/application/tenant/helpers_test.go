package tenant_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/application/notification"
	"github.com/jhoicas/comercio-api/internal/application/tenant"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles de prueba
// ──────────────────────────────────────────────────────────────────────────────

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) Publish(_ context.Context, ev notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Event(nil), n.events...)
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

type memLock struct {
	l   *memLocker
	key string
}

func (l *memLocker) Obtain(_ context.Context, key string, _ time.Duration) (tenant.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, domain.ErrConflict
	}
	l.held[key] = true
	return &memLock{l: l, key: key}, nil
}

func (m *memLock) Release(context.Context) error {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	delete(m.l.held, m.key)
	return nil
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) { return s.allowed, s.err }

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

var testConfig = tenant.Config{
	DefaultStoreName:   "Tienda principal",
	Plan:               "BASIC",
	StoreLimit:         2,
	UserLimit:          5,
	InvoiceLimit:       100,
	SecurityCodeLength: 8,
	PhoneRegion:        "CO",
	JoinCooldown:       24 * time.Hour,
	LockTTL:            time.Second,
	StepTimeout:        time.Second,
}

func principal(id string) entity.Principal {
	return entity.Principal{UserID: id, Email: id + "@example.com", Name: "Usuario " + id}
}

func tenantRequest(name, taxID string) dto.ProvisionTenantRequest {
	return dto.ProvisionTenantRequest{
		Name:         name,
		TaxID:        taxID,
		ContactEmail: "contacto@example.com",
		ContactPhone: "300 123 4567",
		Address:      "Calle 10 # 5-20, Bogotá",
	}
}

type fixture struct {
	db       *memory.DB
	notifier *recordingNotifier
	provider *tenant.ProvisionUseCase
	joins    *tenant.JoinUseCase
	stores   *tenant.StoreUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	n := &recordingNotifier{}
	f := &fixture{db: db, notifier: n}
	f.provider = tenant.NewProvisionUseCase(tenant.ProvisionDeps{
		Primary:       db.Primary(),
		Tenants:       db.Tenants(),
		Stores:        db.Stores(),
		Subscriptions: db.Subscriptions(),
		Memberships:   db.Memberships(),
		Profiles:      db.Profiles(),
		Locker:        &memLocker{},
		Notifier:      n,
		Log:           zerolog.Nop(),
	}, testConfig)
	f.joins = tenant.NewJoinUseCase(tenant.JoinDeps{
		Primary:     db.Primary(),
		Tenants:     db.Tenants(),
		Memberships: db.Memberships(),
		Joins:       db.JoinRequestsRepo(),
		Notifier:    n,
		Log:         zerolog.Nop(),
	}, testConfig)
	f.stores = tenant.NewStoreUseCase(tenant.StoreDeps{
		Primary:       db.Primary(),
		Tenants:       db.Tenants(),
		Stores:        db.Stores(),
		Subscriptions: db.Subscriptions(),
		Memberships:   db.Memberships(),
		Log:           zerolog.Nop(),
	}, testConfig)
	return f
}

func (f *fixture) provision(t *testing.T, userID, name, taxID string) *dto.ProvisionTenantResponse {
	t.Helper()
	res, err := f.provider.Provision(context.Background(), principal(userID), tenantRequest(name, taxID))
	require.NoError(t, err)
	return res
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	fe, ok := err.(*domain.FieldErrors)
	require.True(t, ok, "se esperaba *domain.FieldErrors, llegó %T", err)
	out := make([]string, 0, len(fe.Fields))
	for _, f := range fe.Fields {
		out = append(out, f.Field)
	}
	return out
}
