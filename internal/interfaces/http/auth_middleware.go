package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/comercio-api/internal/domain/entity"
	"github.com/jhoicas/comercio-api/pkg/jwt"
)

// Locals keys de la identidad autenticada y del tenant activo.
const (
	LocalPrincipal = "principal"
	LocalTenantID  = "tenant_id"
	LocalRole      = "role"
)

// AuthMiddleware valida el Bearer Token JWT emitido por el proveedor de identidad y deja el
// entity.Principal en c.Locals. El tenant y el rol del token son sólo una pista: RequireTenant
// los confirma contra la membresía.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return rejectMessage(c, fiber.StatusUnauthorized, "MISSING_TOKEN", "Authorization header requerido")
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return rejectMessage(c, fiber.StatusUnauthorized, "INVALID_TOKEN", "formato: Bearer <token>")
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return rejectMessage(c, fiber.StatusUnauthorized, "MISSING_TOKEN", "token vacío")
		}
		id, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return rejectMessage(c, fiber.StatusUnauthorized, "INVALID_TOKEN", "token inválido o expirado")
		}
		c.Locals(LocalPrincipal, entity.Principal{
			UserID:   id.UserID,
			Email:    id.Email,
			Name:     id.Name,
			Phone:    id.Phone,
			TenantID: id.TenantID,
			Role:     id.Role,
		})
		if id.TenantID != "" {
			c.Locals(LocalTenantID, id.TenantID)
		}
		if id.Role != "" {
			c.Locals(LocalRole, id.Role)
		}
		return c.Next()
	}
}

// RequireRole autoriza sólo a los roles indicados. Debe ir después de AuthMiddleware
// (o de RequireTenant, que fija el rol real de la membresía).
func RequireRole(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return rejectMessage(c, fiber.StatusUnauthorized, "MISSING_ROLE", "el token no indica un rol")
		}
		for _, r := range allowed {
			if strings.EqualFold(r, role) {
				return c.Next()
			}
		}
		return rejectMessage(c, fiber.StatusForbidden, CodeForbidden, "el rol '"+role+"' no tiene acceso a este recurso")
	}
}

// GetPrincipal devuelve la identidad autenticada (después del middleware de auth).
func GetPrincipal(c *fiber.Ctx) entity.Principal {
	p, _ := c.Locals(LocalPrincipal).(entity.Principal)
	if tenantID := GetTenantID(c); tenantID != "" {
		p.TenantID = tenantID
	}
	if role := GetRole(c); role != "" {
		p.Role = role
	}
	return p
}

// GetUserID devuelve el UserID del contexto.
func GetUserID(c *fiber.Ctx) string {
	p, _ := c.Locals(LocalPrincipal).(entity.Principal)
	return p.UserID
}

// GetTenantID devuelve el tenant activo del contexto.
func GetTenantID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalTenantID).(string)
	return s
}

// GetRole devuelve el rol del contexto.
func GetRole(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalRole).(string)
	return s
}
