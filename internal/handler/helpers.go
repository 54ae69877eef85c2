package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/kioskworks/kiosk-admin-api/internal/middleware"
	"github.com/kioskworks/kiosk-admin-api/internal/service"
)

// sessionIDFromContext resolves the admin session key used for filter state
// and selection tracking. The admin id is a stable fallback for tokens minted
// without a session claim.
func sessionIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals("session_id"); v != nil {
		if id, ok := v.(string); ok && strings.TrimSpace(id) != "" {
			return strings.TrimSpace(id)
		}
	}
	if v := c.Locals("admin_id"); v != nil {
		if id, ok := v.(string); ok && strings.TrimSpace(id) != "" {
			return strings.TrimSpace(id)
		}
	}
	return "anonymous"
}

func adminIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals("admin_id"); v != nil {
		if id, ok := v.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	return service.Actor{
		ID:          adminIDFromContext(c),
		SessionID:   sessionIDFromContext(c),
		Permissions: middleware.Permissions(c),
	}
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
