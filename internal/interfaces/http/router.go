package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/comercio-api/internal/application/catalog"
	"github.com/jhoicas/comercio-api/internal/application/inventory"
	"github.com/jhoicas/comercio-api/internal/application/sales"
	"github.com/jhoicas/comercio-api/internal/application/tenant"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Provision        *tenant.ProvisionUseCase
	Stores           *tenant.StoreUseCase
	Joins            *tenant.JoinUseCase
	Membership       *tenant.MembershipUseCase
	RegisterMovement *inventory.RegisterMovementUseCase
	LowStock         *inventory.LowStockUseCase
	ProcessSale      *sales.ProcessSaleUseCase
	ProductUC        *catalog.ProductUseCase
	CustomerUC       *catalog.CustomerUseCase
	JWTSecret        string
}

// Router registra las rutas de la API. Todo /api exige Bearer Token; las rutas
// de operación del comercio además resuelven el tenant activo.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Tenants: el tenant sale de la ruta, los casos de uso validan la membresía.
	tenantHandler := NewTenantHandler(deps.Provision, deps.Stores, deps.Joins, deps.Membership)
	api.Get("/me/memberships", tenantHandler.ListMemberships)
	tenants := api.Group("/tenants")
	tenants.Post("/", tenantHandler.Provision)
	tenants.Post("/join", tenantHandler.RequestJoin)
	tenants.Post("/join-requests/:id/review", tenantHandler.ReviewJoinRequest)
	tenants.Get("/:id/membership", tenantHandler.GetMembership)
	tenants.Get("/:id/join-requests", tenantHandler.ListJoinRequests)
	tenants.Post("/:id/stores", tenantHandler.CreateStore)
	tenants.Get("/:id/stores", tenantHandler.ListStores)

	scoped := RequireTenant(deps.Membership)
	active := RequireActiveSubscription(deps.Membership)

	// Products
	products := api.Group("/products", scoped)
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", RequireRole(entity.RoleAdministrator), productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)

	// Customers
	customers := api.Group("/customers", scoped)
	customerHandler := NewCustomerHandler(deps.CustomerUC)
	customers.Post("/", customerHandler.Create)
	customers.Get("/", customerHandler.List)

	// Inventory
	inventoryHandler := NewInventoryHandler(deps.RegisterMovement, deps.LowStock)
	invGroup := api.Group("/inventory", scoped)
	invGroup.Post("/movements", active, inventoryHandler.RegisterMovement)
	invGroup.Get("/low-stock", inventoryHandler.LowStock)
	api.Post("/movements", scoped, active, inventoryHandler.RegisterMovement)

	// Sales
	saleHandler := NewSaleHandler(deps.ProcessSale)
	api.Post("/sales", scoped, active, saleHandler.ProcessSale)
}
