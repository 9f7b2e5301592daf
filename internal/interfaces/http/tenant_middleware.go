package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/entity"
)

// tenantHeader permite elegir el tenant activo cuando el usuario pertenece a varios.
const tenantHeader = "X-Tenant-Id"

// tenantGate es el contrato mínimo que necesitan los middlewares de tenant.
// Lo implementa *tenant.MembershipUseCase; el uso de interfaz evita el import circular.
type tenantGate interface {
	Get(ctx context.Context, p entity.Principal, tenantID string) (*dto.MembershipResponse, error)
	List(ctx context.Context, p entity.Principal) ([]*dto.MembershipResponse, error)
	HasActiveSubscription(ctx context.Context, tenantID string) (bool, error)
}

// RequireTenant resuelve el tenant activo (header X-Tenant-Id, claim del token o membresía
// por defecto, en ese orden), confirma la membresía y fija en c.Locals el tenant y el rol real.
//
// Comportamiento:
//   - 403 Forbidden → el usuario no pertenece al tenant o no tiene ninguno.
//   - Fallo al consultar la membresía → ErrorHandler (500 con request_id).
func RequireTenant(gate tenantGate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p.UserID == "" {
			return rejectMessage(c, fiber.StatusUnauthorized, CodeUnauthorized, "identidad no encontrada en el token")
		}
		tenantID := strings.TrimSpace(c.Get(tenantHeader))
		if tenantID == "" {
			tenantID = p.TenantID
		}
		if tenantID == "" {
			list, err := gate.List(c.UserContext(), p)
			if err != nil {
				return err
			}
			for _, m := range list {
				if m.IsDefault {
					tenantID = m.TenantID
					break
				}
			}
		}
		if tenantID == "" {
			return rejectMessage(c, fiber.StatusForbidden, "NO_TENANT", "el usuario no pertenece a ningún tenant")
		}

		m, err := gate.Get(c.UserContext(), p, tenantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return rejectMessage(c, fiber.StatusForbidden, CodeForbidden, "no pertenece al tenant")
			}
			return respondError(c, err)
		}
		c.Locals(LocalTenantID, m.TenantID)
		c.Locals(LocalRole, m.Role)
		return c.Next()
	}
}

// RequireActiveSubscription bloquea las operaciones de un tenant sin suscripción activa.
// Debe usarse DESPUÉS de RequireTenant.
//
// Comportamiento:
//   - 403 Forbidden  → suscripción inexistente, suspendida o cancelada.
//   - 503 Service Unavailable → fallo de infraestructura al consultar la suscripción.
func RequireActiveSubscription(gate tenantGate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := GetTenantID(c)
		if tenantID == "" {
			return rejectMessage(c, fiber.StatusUnauthorized, CodeUnauthorized, "tenant no resuelto")
		}
		active, err := gate.HasActiveSubscription(c.UserContext(), tenantID)
		if err != nil {
			return rejectMessage(c, fiber.StatusServiceUnavailable, "SUBSCRIPTION_CHECK_FAILED",
				"no se pudo verificar la suscripción, intente más tarde")
		}
		if !active {
			return rejectMessage(c, fiber.StatusForbidden, "SUBSCRIPTION_INACTIVE",
				"la suscripción del tenant no está activa")
		}
		return c.Next()
	}
}
