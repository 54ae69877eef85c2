package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kioskworks/kiosk-admin-api/internal/utils"
)

// RequirePermission ensures the authenticated admin holds the named capability.
func RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !HasPermission(c, permission) {
			return utils.SendError(c, fiber.StatusForbidden, utils.Message(utils.MsgPermissionDenied))
		}
		return c.Next()
	}
}

// HasPermission reports whether the request's claims grant the capability.
func HasPermission(c *fiber.Ctx, permission string) bool {
	for _, granted := range Permissions(c) {
		if granted == permission {
			return true
		}
	}
	return false
}

// Permissions returns the permission list bound to the request, if any.
func Permissions(c *fiber.Ctx) []string {
	value := c.Locals("permissions")
	if value == nil {
		return nil
	}
	permissions, ok := value.([]string)
	if !ok {
		return nil
	}
	return permissions
}
