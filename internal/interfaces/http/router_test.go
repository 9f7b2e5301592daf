package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/comercio-api/internal/application/catalog"
	"github.com/jhoicas/comercio-api/internal/application/inventory"
	"github.com/jhoicas/comercio-api/internal/application/sales"
	"github.com/jhoicas/comercio-api/internal/application/tenant"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/comercio-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/comercio-api/pkg/jwt"
)

// envelope vista genérica del cuerpo de respuesta.
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Code      string          `json:"code"`
	RequestID string          `json:"request_id"`
	Errors    []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (e envelope) fields() []string {
	out := make([]string, 0, len(e.Errors))
	for _, f := range e.Errors {
		out = append(out, f.Field)
	}
	return out
}

type apiFixture struct {
	db  *memory.DB
	app *fiber.App
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	db := memory.New()
	cfg := tenant.Config{
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
	log := zerolog.Nop()

	provision := tenant.NewProvisionUseCase(tenant.ProvisionDeps{
		Primary:       db.Primary(),
		Tenants:       db.Tenants(),
		Stores:        db.Stores(),
		Subscriptions: db.Subscriptions(),
		Memberships:   db.Memberships(),
		Profiles:      db.Profiles(),
		Locker:        memory.NewLocker(),
		Log:           log,
	}, cfg)
	stores := tenant.NewStoreUseCase(tenant.StoreDeps{
		Primary:       db.Primary(),
		Tenants:       db.Tenants(),
		Stores:        db.Stores(),
		Subscriptions: db.Subscriptions(),
		Memberships:   db.Memberships(),
		Log:           log,
	}, cfg)
	joins := tenant.NewJoinUseCase(tenant.JoinDeps{
		Primary:     db.Primary(),
		Tenants:     db.Tenants(),
		Memberships: db.Memberships(),
		Joins:       db.JoinRequestsRepo(),
		Log:         log,
	}, cfg)
	movements := inventory.NewRegisterMovementUseCase(db.TxRunner(), db.Products(), db.Stores(), nil, nil, log)
	sale := sales.NewProcessSaleUseCase(db.TxRunner(), movements, db.Products(), db.Customers(), db.Stores(), nil, log, sales.Config{
		TaxRate:       decimal.RequireFromString("0.19"),
		NumberRetries: 3,
	})

	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(log)})
	app.Use(apphttp.RequestID())
	apphttp.Router(app, apphttp.RouterDeps{
		Provision:        provision,
		Stores:           stores,
		Joins:            joins,
		Membership:       tenant.NewMembershipUseCase(db.Memberships(), db.Subscriptions()),
		RegisterMovement: movements,
		LowStock:         inventory.NewLowStockUseCase(db.StockRepo()),
		ProcessSale:      sale,
		ProductUC:        catalog.NewProductUseCase(db.Products()),
		CustomerUC:       catalog.NewCustomerUseCase(db.Customers(), "CO"),
		JWTSecret:        testJWTSecret,
	})
	return &apiFixture{db: db, app: app}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, pkgjwt.Identity{UserID: userID, Email: userID + "@example.com", Name: "Usuario " + userID}, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (f *apiFixture) call(t *testing.T, method, path, auth string, body any) (*http.Response, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

var acme = map[string]any{
	"name":          "Acme SAS",
	"tax_id":        "900123456-7",
	"contact_email": "a@acme.test",
	"contact_phone": "300 123 4567",
	"address":       "Calle 10 # 5-20, Bogotá",
}

type provisioned struct {
	TenantID     string `json:"tenant_id"`
	StoreID      string `json:"store_id"`
	SecurityCode string `json:"security_code"`
	Redirect     string `json:"redirect"`
}

func (f *apiFixture) provisionAcme(t *testing.T, auth string) provisioned {
	t.Helper()
	resp, env := f.call(t, http.MethodPost, "/api/tenants", auth, acme)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "errores: %v", env.Errors)
	return decode[provisioned](t, env.Data)
}

func TestAPI_SinToken(t *testing.T) {
	f := newAPI(t)
	resp, env := f.call(t, http.MethodPost, "/api/tenants", "", acme)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "MISSING_TOKEN", env.Code)
}

func TestAPI_AprovisionarYConsultarMembresia(t *testing.T) {
	f := newAPI(t)
	admin := bearer(t, "u-admin")

	res := f.provisionAcme(t, admin)
	assert.NotEmpty(t, res.TenantID)
	assert.NotEmpty(t, res.StoreID)
	assert.NotEmpty(t, res.Redirect)

	resp, env := f.call(t, http.MethodGet, "/api/tenants/"+res.TenantID+"/membership", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode[map[string]any](t, env.Data)
	assert.Equal(t, entity.RoleAdministrator, m["role"])
	assert.Equal(t, true, m["is_default"])

	// el mismo NIT otra vez es un duplicado: 409 con el campo señalado
	resp, env = f.call(t, http.MethodPost, "/api/tenants", bearer(t, "u-otro"), acme)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apphttp.CodeDuplicate, env.Code)
	assert.Contains(t, env.fields(), "tax_id")
}

func TestAPI_ValidacionReportaTodosLosCampos(t *testing.T) {
	f := newAPI(t)
	resp, env := f.call(t, http.MethodPost, "/api/tenants", bearer(t, "u-1"), map[string]any{"name": "Sin datos"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apphttp.CodeValidation, env.Code)
	assert.Subset(t, env.fields(), []string{"tax_id", "contact_email", "contact_phone", "address"})
	assert.Empty(t, f.db.AllTenants(), "la validación falla antes de escribir")
}

func TestAPI_VentaConStockInsuficienteYLuegoValida(t *testing.T) {
	f := newAPI(t)
	admin := bearer(t, "u-admin")
	res := f.provisionAcme(t, admin)

	resp, env := f.call(t, http.MethodPost, "/api/products", admin, map[string]any{
		"sku": "CAF-500", "name": "Café 500 g", "price": "1000", "cost": "600",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "errores: %v", env.Errors)
	productID := decode[map[string]any](t, env.Data)["id"].(string)

	resp, env = f.call(t, http.MethodPost, "/api/inventory/movements", admin, map[string]any{
		"product_id": productID, "type": "ENTRADA", "quantity": "5", "area_id": res.StoreID, "unit_cost": "600",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "errores: %v", env.Errors)

	sale := map[string]any{
		"area_id":        res.StoreID,
		"payment_method": "CASH",
		"items":          []map[string]any{{"product_id": productID, "quantity": "10"}},
	}
	resp, env = f.call(t, http.MethodPost, "/api/sales", admin, sale)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apphttp.CodeInsufficientStock, env.Code)
	assert.Equal(t, []string{"items." + productID}, env.fields())
	assert.EqualValues(t, 5, f.db.StockOf(productID, res.StoreID), "la venta rechazada no toca el stock")

	sale["items"] = []map[string]any{{"product_id": productID, "quantity": "2"}}
	resp, env = f.call(t, http.MethodPost, "/api/sales", admin, sale)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "errores: %v", env.Errors)
	out := decode[map[string]any](t, env.Data)
	assert.NotEmpty(t, out["sale_number"])
	assert.EqualValues(t, 3, f.db.StockOf(productID, res.StoreID))
}

func TestAPI_UsuarioSinTenant(t *testing.T) {
	f := newAPI(t)
	resp, env := f.call(t, http.MethodGet, "/api/products", bearer(t, "u-nadie"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "NO_TENANT", env.Code)
}

func TestAPI_SuscripcionInactiva(t *testing.T) {
	f := newAPI(t)
	admin := bearer(t, "u-admin")
	res := f.provisionAcme(t, admin)
	f.db.SetSubscriptionStatus(res.TenantID, entity.SubscriptionSuspended)

	resp, env := f.call(t, http.MethodPost, "/api/sales", admin, map[string]any{
		"area_id": res.StoreID, "payment_method": "CASH",
		"items": []map[string]any{{"product_id": "x", "quantity": "1"}},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "SUBSCRIPTION_INACTIVE", env.Code)

	// las consultas siguen disponibles
	resp, _ = f.call(t, http.MethodGet, "/api/products", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_SolicitudDeIngresoYEspera(t *testing.T) {
	f := newAPI(t)
	admin := bearer(t, "u-admin")
	res := f.provisionAcme(t, admin)
	candidate := bearer(t, "u-cand")
	join := map[string]any{"tax_id": "900123456-7", "security_code": res.SecurityCode}

	resp, env := f.call(t, http.MethodPost, "/api/tenants/join", candidate, join)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "errores: %v", env.Errors)
	first := decode[map[string]any](t, env.Data)

	// pendiente: la segunda llamada devuelve la misma solicitud
	resp, env = f.call(t, http.MethodPost, "/api/tenants/join", candidate, join)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first["id"], decode[map[string]any](t, env.Data)["id"])

	// un empleado no revisa; el administrador rechaza
	resp, _ = f.call(t, http.MethodPost, "/api/tenants/join-requests/"+first["id"].(string)+"/review", candidate, map[string]any{"decision": "REJECT"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = f.call(t, http.MethodPost, "/api/tenants/join-requests/"+first["id"].(string)+"/review", admin, map[string]any{"decision": "REJECT"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = f.call(t, http.MethodPost, "/api/tenants/join", candidate, join)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, apphttp.CodeCooldown, env.Code)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// la revisión de una solicitud ya resuelta es un conflicto
	resp, env = f.call(t, http.MethodPost, "/api/tenants/join-requests/"+first["id"].(string)+"/review", admin, map[string]any{"decision": "APPROVE"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apphttp.CodeConflict, env.Code)
}

func TestAPI_FalloDeInfraestructuraResponde500ConReferencia(t *testing.T) {
	f := newAPI(t)
	f.db.FailOn("tenants.Create", assert.AnError)

	resp, env := f.call(t, http.MethodPost, "/api/tenants", bearer(t, "u-1"), acme)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, apphttp.CodeInternal, env.Code)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, resp.Header.Get("X-Request-Id"), env.RequestID)
	assert.NotContains(t, env.Errors[0].Message, assert.AnError.Error(), "no se filtra el detalle interno")
	assert.Empty(t, f.db.TenantDocs(), "la compensación deja el almacén principal limpio")
}

func TestAPI_RutaInexistente(t *testing.T) {
	f := newAPI(t)
	resp, env := f.call(t, http.MethodGet, "/api/nada", bearer(t, "u-1"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, apphttp.CodeNotFound, env.Code)
}
