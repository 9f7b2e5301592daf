package tenant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/application/notification"
	"github.com/jhoicas/comercio-api/internal/application/tenant"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

func TestProvision_CreaTenantCompleto(t *testing.T) {
	f := newFixture(t)

	res, err := f.provider.Provision(context.Background(), principal("u1"), tenantRequest("Café Central", "900.123.456-7"))
	require.NoError(t, err)

	assert.Equal(t, "/tenants/"+res.TenantID+"/stores/"+res.StoreID, res.Redirect)
	assert.Len(t, res.SecurityCode, testConfig.SecurityCodeLength)

	docs := f.db.TenantDocs()
	require.Len(t, docs, 1)
	assert.Equal(t, "900123456-7", docs[0].TaxID)
	assert.Equal(t, "+573001234567", docs[0].ContactPhone)
	require.Len(t, f.db.StoreDocs(), 1)
	assert.True(t, f.db.StoreDocs()[0].IsDefault)

	tenants := f.db.AllTenants()
	require.Len(t, tenants, 1)
	assert.Equal(t, docs[0].ID, tenants[0].ExternalID)
	assert.Equal(t, "cafe central", tenants[0].NameKey)
	assert.Equal(t, res.SecurityCode, tenants[0].SecurityCode, "el espejo guarda el mismo código que el documento")
	assert.Equal(t, docs[0].SecurityCode, tenants[0].SecurityCode)

	stores := f.db.AllStores()
	require.Len(t, stores, 1)
	assert.True(t, stores[0].IsDefault)
	assert.Equal(t, "Tienda principal", stores[0].Name)

	subs := f.db.AllSubscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, entity.SubscriptionActive, subs[0].Status)

	ms := f.db.MembershipsOf("u1")
	require.Len(t, ms, 1)
	assert.Equal(t, entity.RoleAdministrator, ms[0].Role)
	assert.True(t, ms[0].IsDefault)
	assert.NotNil(t, f.db.Profile("u1"))

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, res.TenantID, events[0].TenantID)
}

func TestProvision_CamposFaltantesSinEscrituras(t *testing.T) {
	f := newFixture(t)

	_, err := f.provider.Provision(context.Background(), principal("u1"), dto.ProvisionTenantRequest{Name: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ElementsMatch(t, []string{"name", "tax_id", "contact_email", "contact_phone", "address"}, fieldNames(t, err))
	assert.Zero(t, f.db.Writes())
}

func TestProvision_TelefonoInvalido(t *testing.T) {
	f := newFixture(t)
	in := tenantRequest("Alfa", "900123456-7")
	in.ContactPhone = "12"

	_, err := f.provider.Provision(context.Background(), principal("u1"), in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, []string{"contact_phone"}, fieldNames(t, err))
}

func TestProvision_SinIdentidad(t *testing.T) {
	f := newFixture(t)
	_, err := f.provider.Provision(context.Background(), entity.Principal{}, tenantRequest("Alfa", "900123456-7"))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestProvision_DuplicadosReportaAmbosCampos(t *testing.T) {
	f := newFixture(t)
	f.provision(t, "u1", "Alfa", "900123456-7")
	f.provision(t, "u2", "Beta Comercial", "800197268-4")
	before := f.db.Writes()

	_, err := f.provider.Provision(context.Background(), principal("u3"), tenantRequest("beta   comercial", "900 123 456-7"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.ElementsMatch(t, []string{"tax_id", "name"}, fieldNames(t, err))
	assert.Equal(t, before, f.db.Writes(), "un rechazo por unicidad no escribe nada")
	assert.Len(t, f.db.TenantDocs(), 2)
}

func TestProvision_FalloPrincipalNoDejaRastro(t *testing.T) {
	f := newFixture(t)
	f.db.FailOn("primary.InsertStore", errors.New("mongo caído"))

	_, err := f.provider.Provision(context.Background(), principal("u1"), tenantRequest("Alfa", "900123456-7"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPrimaryWrite)
	assert.Empty(t, f.db.TenantDocs(), "la transacción no confirmada no deja el tenant")
	assert.Zero(t, f.db.Writes())
}

func TestProvision_CompensaCuandoFallaElEspejo(t *testing.T) {
	steps := []string{"tenants.Create", "memberships.DemoteOthers", "memberships.Create", "profiles.Upsert", "subscriptions.Create", "stores.Create"}
	for _, op := range steps {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t)
			f.db.FailOn(op, errors.New("postgres caído"))

			_, err := f.provider.Provision(context.Background(), principal("u1"), tenantRequest("Alfa", "900123456-7"))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrSecondaryWrite)

			assert.Empty(t, f.db.TenantDocs())
			assert.Empty(t, f.db.StoreDocs())
			assert.Empty(t, f.db.AllTenants())
			assert.Empty(t, f.db.AllStores())
			assert.Empty(t, f.db.AllSubscriptions())
			assert.Empty(t, f.db.MembershipsOf("u1"))
			assert.Nil(t, f.db.Profile("u1"))
			assert.Empty(t, f.notifier.Events(), "no se notifica un aprovisionamiento revertido")
		})
	}
}

func TestProvision_CompensacionRestauraDefaultAnterior(t *testing.T) {
	f := newFixture(t)
	first := f.provision(t, "u1", "Alfa", "900123456-7")
	f.db.FailOn("stores.Create", errors.New("postgres caído"))

	_, err := f.provider.Provision(context.Background(), principal("u1"), tenantRequest("Beta", "800197268-4"))
	require.ErrorIs(t, err, domain.ErrSecondaryWrite)

	ms := f.db.MembershipsOf("u1")
	require.Len(t, ms, 1)
	assert.Equal(t, first.TenantID, ms[0].TenantID)
	assert.True(t, ms[0].IsDefault)
	assert.NotNil(t, f.db.Profile("u1"), "el perfil existía antes y se conserva")
}

func TestProvision_SegundoTenantPasaASerDefault(t *testing.T) {
	f := newFixture(t)
	first := f.provision(t, "u1", "Alfa", "900123456-7")
	second := f.provision(t, "u1", "Beta", "800197268-4")

	defaults := 0
	for _, m := range f.db.MembershipsOf("u1") {
		if m.IsDefault {
			defaults++
			assert.Equal(t, second.TenantID, m.TenantID)
		} else {
			assert.Equal(t, first.TenantID, m.TenantID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestProvision_SinAlmacenPrincipal(t *testing.T) {
	uc := tenant.NewProvisionUseCase(tenant.ProvisionDeps{Log: zerolog.Nop()}, testConfig)
	_, err := uc.Provision(context.Background(), principal("u1"), tenantRequest("Alfa", "900123456-7"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestProvision_VerificaDigitoNIT(t *testing.T) {
	f := newFixture(t)
	cfg := testConfig
	cfg.VerifyTaxIDDigit = true
	uc := tenant.NewProvisionUseCase(tenant.ProvisionDeps{
		Primary: f.db.Primary(), Tenants: f.db.Tenants(), Stores: f.db.Stores(),
		Subscriptions: f.db.Subscriptions(), Memberships: f.db.Memberships(), Profiles: f.db.Profiles(),
		Locker: &memLocker{}, Log: zerolog.Nop(),
	}, cfg)

	_, err := uc.Provision(context.Background(), principal("u1"), tenantRequest("Alfa", "800197268-5"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Provision(context.Background(), principal("u1"), tenantRequest("Alfa", "800197268-4"))
	assert.NoError(t, err)
}

func TestProvision_CandadoOcupado(t *testing.T) {
	f := newFixture(t)
	locker := &memLocker{}
	_, err := locker.Obtain(context.Background(), "tenant:900123456-7", time.Second)
	require.NoError(t, err)
	uc := tenant.NewProvisionUseCase(tenant.ProvisionDeps{
		Primary: f.db.Primary(), Tenants: f.db.Tenants(), Stores: f.db.Stores(),
		Subscriptions: f.db.Subscriptions(), Memberships: f.db.Memberships(), Profiles: f.db.Profiles(),
		Locker: locker, Log: zerolog.Nop(),
	}, testConfig)

	_, err = uc.Provision(context.Background(), principal("u1"), tenantRequest("Alfa", "900123456-7"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Zero(t, f.db.Writes())
}

func TestProvision_FalloDeNotificacionNoAfecta(t *testing.T) {
	f := newFixture(t)
	f.db.FailOn("notifications.Create", errors.New("sin espacio"))
	d := notification.NewDispatcher(f.db.Memberships(), f.db.NotificationsRepo(), zerolog.Nop(), notification.Options{Workers: 1})
	uc := tenant.NewProvisionUseCase(tenant.ProvisionDeps{
		Primary: f.db.Primary(), Tenants: f.db.Tenants(), Stores: f.db.Stores(),
		Subscriptions: f.db.Subscriptions(), Memberships: f.db.Memberships(), Profiles: f.db.Profiles(),
		Locker: &memLocker{}, Notifier: d, Log: zerolog.Nop(),
	}, testConfig)

	res, err := uc.Provision(context.Background(), principal("u1"), tenantRequest("Alfa", "900123456-7"))
	d.Close()
	require.NoError(t, err)
	assert.NotEmpty(t, res.TenantID)
	assert.Empty(t, f.db.Notifications())
}

func TestCreateStore_RespetaLimiteDelPlan(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "u1", "Alfa", "900123456-7")

	s, err := f.stores.Create(context.Background(), principal("u1"), res.TenantID, dto.CreateStoreRequest{Name: "Sucursal Norte"})
	require.NoError(t, err)
	assert.False(t, s.IsDefault)
	assert.Len(t, f.db.StoreDocs(), 2)

	_, err = f.stores.Create(context.Background(), principal("u1"), res.TenantID, dto.CreateStoreRequest{Name: "Sucursal Sur"})
	assert.ErrorIs(t, err, domain.ErrConflict, "el plan de prueba permite 2 tiendas")
}

func TestCreateStore_SoloAdministrador(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "u1", "Alfa", "900123456-7")

	_, err := f.stores.Create(context.Background(), principal("intruso"), res.TenantID, dto.CreateStoreRequest{Name: "Sucursal"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateStore_CompensaDocumento(t *testing.T) {
	f := newFixture(t)
	res := f.provision(t, "u1", "Alfa", "900123456-7")
	f.db.FailOn("stores.Create", errors.New("postgres caído"))

	_, err := f.stores.Create(context.Background(), principal("u1"), res.TenantID, dto.CreateStoreRequest{Name: "Sucursal"})
	assert.ErrorIs(t, err, domain.ErrSecondaryWrite)
	assert.Len(t, f.db.StoreDocs(), 1, "el documento de la tienda nueva se elimina")
}
