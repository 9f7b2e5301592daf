package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/application/inventory"
)

// InventoryHandler maneja las peticiones HTTP de movimientos e inventario (protegido).
type InventoryHandler struct {
	uc       *inventory.RegisterMovementUseCase
	lowStock *inventory.LowStockUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *inventory.RegisterMovementUseCase, lowStock *inventory.LowStockUseCase) *InventoryHandler {
	return &InventoryHandler{uc: uc, lowStock: lowStock}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, type, quantity, area_id (o from/to para TRANSFERENCIA), unit_cost (entradas)"
// @Success      201   {object}  dto.Envelope
// @Failure      400   {object}  dto.Envelope
// @Failure      403   {object}  dto.Envelope
// @Failure      404   {object}  dto.Envelope
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.RegisterMovement(c.UserContext(), GetTenantID(c), GetUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusCreated, out)
}

// LowStock godoc
// @Summary      Productos bajo el stock mínimo
// @Description  Devuelve los productos cuya existencia está por debajo del mínimo,
//
//	con la cantidad sugerida de pedido, ordenados por déficit.
//
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        area_id  query  string  false  "Filtrar por tienda (UUID). Vacío = todas."
// @Success      200  {object}  dto.Envelope
// @Failure      401  {object}  dto.Envelope
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	list, err := h.lowStock.List(c.UserContext(), GetTenantID(c), c.Query("area_id"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, fiber.StatusOK, list)
}
