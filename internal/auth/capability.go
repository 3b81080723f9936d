package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/workflow-service/pkg/util"
)

// RequireCapability gates a route on one effective capability. Services
// re-check capabilities themselves; this keeps obviously unauthorized calls
// out of the engine.
func RequireCapability(capability string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Capabilities.Has(capability) {
			return apperrors.NewPermissionDenied(capability)
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
