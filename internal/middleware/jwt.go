package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kioskworks/kiosk-admin-api/internal/utils"
)

// JWTProtected returns a middleware that validates JWT bearer tokens and
// exposes the admin's id, session id, and permission list to handlers.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		if adminID := stringClaim(claims, "sub", "admin_id", "user_id"); adminID != "" {
			c.Locals("admin_id", adminID)
		}
		if sessionID := stringClaim(claims, "sid", "session_id"); sessionID != "" {
			c.Locals("session_id", sessionID)
		}
		c.Locals("permissions", permissionsFromClaims(claims))

		return c.Next()
	}
}

func stringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			if v >= 0 {
				return fmt.Sprintf("%.0f", v)
			}
		}
	}
	return ""
}

func permissionsFromClaims(claims jwt.MapClaims) []string {
	raw, ok := claims["permissions"]
	if !ok {
		return nil
	}

	var permissions []string
	switch values := raw.(type) {
	case []interface{}:
		for _, item := range values {
			if s, ok := item.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					permissions = append(permissions, trimmed)
				}
			}
		}
	case []string:
		for _, s := range values {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				permissions = append(permissions, trimmed)
			}
		}
	case string:
		for _, s := range strings.Split(values, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				permissions = append(permissions, trimmed)
			}
		}
	}
	return permissions
}
