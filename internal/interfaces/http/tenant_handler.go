package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/application/tenant"
)

// TenantHandler aprovisionamiento, tiendas, solicitudes de ingreso y membresías (protegido).
type TenantHandler struct {
	provision  *tenant.ProvisionUseCase
	stores     *tenant.StoreUseCase
	joins      *tenant.JoinUseCase
	membership *tenant.MembershipUseCase
}

// NewTenantHandler construye el handler.
func NewTenantHandler(provision *tenant.ProvisionUseCase, stores *tenant.StoreUseCase, joins *tenant.JoinUseCase, membership *tenant.MembershipUseCase) *TenantHandler {
	return &TenantHandler{provision: provision, stores: stores, joins: joins, membership: membership}
}

// Provision godoc
// @Summary      Aprovisionar tenant
// @Description  Crea el tenant y su tienda principal en ambos almacenes; el solicitante queda como ADMINISTRATOR.
// @Tags         tenants
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProvisionTenantRequest  true  "Datos del tenant"
// @Success      201   {object}  dto.Envelope
// @Failure      400   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Failure      500   {object}  dto.Envelope
// @Router       /api/tenants [post]
func (h *TenantHandler) Provision(c *fiber.Ctx) error {
	var in dto.ProvisionTenantRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.provision.Provision(c.UserContext(), GetPrincipal(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusCreated, out)
}

// CreateStore godoc
// @Summary      Crear tienda adicional
// @Tags         tenants
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del tenant"
// @Param        body  body  dto.CreateStoreRequest  true  "Datos de la tienda"
// @Success      201   {object}  dto.Envelope
// @Failure      400   {object}  dto.Envelope
// @Failure      403   {object}  dto.Envelope
// @Router       /api/tenants/{id}/stores [post]
func (h *TenantHandler) CreateStore(c *fiber.Ctx) error {
	var in dto.CreateStoreRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.stores.Create(c.UserContext(), GetPrincipal(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusCreated, out)
}

// ListStores godoc
// @Summary      Listar tiendas del tenant
// @Tags         tenants
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del tenant"
// @Success      200  {object}  dto.Envelope
// @Router       /api/tenants/{id}/stores [get]
func (h *TenantHandler) ListStores(c *fiber.Ctx) error {
	out, err := h.stores.List(c.UserContext(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, out)
}

// RequestJoin godoc
// @Summary      Solicitar ingreso a un tenant
// @Description  Crea la solicitud pendiente o devuelve la existente (200). Un rechazo reciente responde 429.
// @Tags         tenants
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.JoinTenantRequest  true  "NIT y código de seguridad"
// @Success      201   {object}  dto.Envelope
// @Success      200   {object}  dto.Envelope
// @Failure      404   {object}  dto.Envelope
// @Failure      429   {object}  dto.Envelope
// @Router       /api/tenants/join [post]
func (h *TenantHandler) RequestJoin(c *fiber.Ctx) error {
	var in dto.JoinTenantRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.joins.RequestJoin(c.UserContext(), GetPrincipal(c), in)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if out.Created {
		status = fiber.StatusCreated
	}
	return respond(c, status, out)
}

// ListJoinRequests godoc
// @Summary      Solicitudes de ingreso pendientes
// @Tags         tenants
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del tenant"
// @Success      200  {object}  dto.Envelope
// @Failure      403  {object}  dto.Envelope
// @Router       /api/tenants/{id}/join-requests [get]
func (h *TenantHandler) ListJoinRequests(c *fiber.Ctx) error {
	out, err := h.joins.ListPending(c.UserContext(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, out)
}

// ReviewJoinRequest godoc
// @Summary      Aprobar o rechazar una solicitud de ingreso
// @Tags         tenants
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID de la solicitud"
// @Param        body  body  dto.ReviewJoinRequest  true  "APPROVE o REJECT"
// @Success      200   {object}  dto.Envelope
// @Failure      403   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/tenants/join-requests/{id}/review [post]
func (h *TenantHandler) ReviewJoinRequest(c *fiber.Ctx) error {
	var in dto.ReviewJoinRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.joins.Review(c.UserContext(), GetPrincipal(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, out)
}

// GetMembership godoc
// @Summary      Membresía del usuario en el tenant
// @Tags         tenants
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del tenant"
// @Success      200  {object}  dto.Envelope
// @Failure      404  {object}  dto.Envelope
// @Router       /api/tenants/{id}/membership [get]
func (h *TenantHandler) GetMembership(c *fiber.Ctx) error {
	out, err := h.membership.Get(c.UserContext(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, out)
}

// ListMemberships godoc
// @Summary      Membresías del usuario autenticado
// @Tags         tenants
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.Envelope
// @Router       /api/me/memberships [get]
func (h *TenantHandler) ListMemberships(c *fiber.Ctx) error {
	out, err := h.membership.List(c.UserContext(), GetPrincipal(c))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, out)
}
