package tenant_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/application/tenant"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func joinRequest(res *dto.ProvisionTenantResponse) dto.JoinTenantRequest {
	return dto.JoinTenantRequest{TaxID: "900.123.456-7", SecurityCode: res.SecurityCode}
}

func TestRequestJoin_CreaPendienteYNotifica(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "admin", "Alfa", "900123456-7")

	out, err := f.joins.RequestJoin(context.Background(), principal("emp"), joinRequest(res))
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, entity.JoinStatusPending, out.Status)
	assert.Equal(t, res.TenantID, out.TenantID)
	assert.Equal(t, "Alfa", out.TenantName)

	events := f.notifier.Events()
	require.Len(t, events, 2, "aprovisionamiento y solicitud")
	assert.Equal(t, entity.NotificationJoinRequest, events[1].Category)
	assert.Empty(t, events[1].Recipients, "va a los administradores del tenant")
}

func TestRequestJoin_Idempotente(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "admin", "Alfa", "900123456-7")

	first, err := f.joins.RequestJoin(context.Background(), principal("emp"), joinRequest(res))
	require.NoError(t, err)
	second, err := f.joins.RequestJoin(context.Background(), principal("emp"), joinRequest(res))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.Created)
	assert.Len(t, f.db.JoinRequests(), 1)
}

func TestRequestJoin_CodigoEnMinusculasYEspacios(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "admin", "Alfa", "900123456-7")
	in := joinRequest(res)
	in.SecurityCode = "  " + toLower(res.SecurityCode) + " "

	_, err := f.joins.RequestJoin(context.Background(), principal("emp"), in)
	assert.NoError(t, err)
}

func TestRequestJoin_CodigoIncorrecto(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "admin", "Alfa", "900123456-7")
	in := joinRequest(res)
	in.SecurityCode = "XXXXXXXX"

	_, err := f.joins.RequestJoin(context.Background(), principal("emp"), in)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, f.db.JoinRequests())
}

func TestRequestJoin_NITDesconocido(t *testing.T) {
	f := newFixture(t)
	f.provision(t, "admin", "Alfa", "900123456-7")

	_, err := f.joins.RequestJoin(context.Background(), principal("emp"), dto.JoinTenantRequest{TaxID: "111", SecurityCode: "ABC"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequestJoin_CamposObligatorios(t *testing.T) {
	f := newFixture(t)
	_, err := f.joins.RequestJoin(context.Background(), principal("emp"), dto.JoinTenantRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ElementsMatch(t, []string{"tax_id", "security_code"}, fieldNames(t, err))
}

func TestRequestJoin_YaEsMiembro(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "admin", "Alfa", "900123456-7")

	_, err := f.joins.RequestJoin(context.Background(), principal("admin"), joinRequest(res))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRequestJoin_EsperaTrasRechazo(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "admin", "Alfa", "900123456-7")
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := &clock{now: t0}
	f.joins.WithClock(clk.Now)

	req, err := f.joins.RequestJoin(context.Background(), principal("emp"), joinRequest(res))
	require.NoError(t, err)
	_, err = f.joins.Review(context.Background(), principal("admin"), req.ID, dto.ReviewJoinRequest{Decision: "REJECT"})
	require.NoError(t, err)

	clk.Set(t0.Add(24*time.Hour - time.Minute))
	_, err = f.joins.RequestJoin(context.Background(), principal("emp"), joinRequest(res))
	require.Error(t, err)
	var cd *domain.CooldownError
	require.True(t, errors.As(err, &cd))
	assert.Equal(t, t0.Add(24*time.Hour), cd.RetryAfter)
	assert.ErrorIs(t, err, domain.ErrCooldown)

	clk.Set(t0.Add(24 * time.Hour))
	out, err := f.joins.RequestJoin(context.Background(), principal("emp"), joinRequest(res))
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.NotEqual(t, req.ID, out.ID)
}

func TestRequestJoin_Limitador(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "admin", "Alfa", "900123456-7")

	denied := tenant.NewJoinUseCase(tenant.JoinDeps{
		Primary: f.db.Primary(), Tenants: f.db.Tenants(), Memberships: f.db.Memberships(),
		Joins: f.db.JoinRequestsRepo(), Limiter: stubLimiter{allowed: false}, Log: zerolog.Nop(),
	}, testConfig)
	_, err := denied.RequestJoin(context.Background(), principal("emp"), joinRequest(res))
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	broken := tenant.NewJoinUseCase(tenant.JoinDeps{
		Primary: f.db.Primary(), Tenants: f.db.Tenants(), Memberships: f.db.Memberships(),
		Joins: f.db.JoinRequestsRepo(), Limiter: stubLimiter{err: errors.New("redis caído")}, Log: zerolog.Nop(),
	}, testConfig)
	_, err = broken.RequestJoin(context.Background(), principal("emp"), joinRequest(res))
	assert.NoError(t, err, "si el limitador falla se continúa")
}

func TestReview_ApruebaCreaMembresiaEmpleado(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "admin", "Alfa", "900123456-7")
	req, err := f.joins.RequestJoin(context.Background(), principal("emp"), joinRequest(res))
	require.NoError(t, err)

	out, err := f.joins.Review(context.Background(), principal("admin"), req.ID, dto.ReviewJoinRequest{Decision: "APPROVE"})
	require.NoError(t, err)
	assert.Equal(t, entity.JoinStatusApproved, out.Status)

	ms := f.db.MembershipsOf("emp")
	require.Len(t, ms, 1)
	assert.Equal(t, entity.RoleEmployee, ms[0].Role)
	assert.True(t, ms[0].IsDefault, "primera membresía del usuario")

	_, err = f.joins.Review(context.Background(), principal("admin"), req.ID, dto.ReviewJoinRequest{Decision: "REJECT"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestReview_SoloAdministrador(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "admin", "Alfa", "900123456-7")
	req, err := f.joins.RequestJoin(context.Background(), principal("emp"), joinRequest(res))
	require.NoError(t, err)

	_, err = f.joins.Review(context.Background(), principal("emp"), req.ID, dto.ReviewJoinRequest{Decision: "APPROVE"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.joins.Review(context.Background(), principal("admin"), "no-existe", dto.ReviewJoinRequest{Decision: "APPROVE"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.joins.Review(context.Background(), principal("admin"), req.ID, dto.ReviewJoinRequest{Decision: "QUIZAS"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReview_FalloAlCrearMembresiaReabre(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "admin", "Alfa", "900123456-7")
	req, err := f.joins.RequestJoin(context.Background(), principal("emp"), joinRequest(res))
	require.NoError(t, err)
	f.db.FailOn("memberships.Create", errors.New("postgres caído"))

	_, err = f.joins.Review(context.Background(), principal("admin"), req.ID, dto.ReviewJoinRequest{Decision: "APPROVE"})
	assert.ErrorIs(t, err, domain.ErrSecondaryWrite)

	pending, err := f.db.JoinRequestsRepo().FindPending(context.Background(), "emp", res.TenantID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, req.ID, pending.ID)
}

func TestListPending(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "admin", "Alfa", "900123456-7")
	_, err := f.joins.RequestJoin(context.Background(), principal("emp1"), joinRequest(res))
	require.NoError(t, err)
	_, err = f.joins.RequestJoin(context.Background(), principal("emp2"), joinRequest(res))
	require.NoError(t, err)

	list, err := f.joins.ListPending(context.Background(), principal("admin"), res.TenantID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
