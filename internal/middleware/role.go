package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/utils"
)

// RequireRoles must run after RequireAuth.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	for _, r := range allowed {
		allowedSet[r] = true
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		if role == "" {
			return utils.AuthError("Please authenticate")
		}
		if !allowedSet[models.Role(role)] {
			return utils.ForbiddenError("forbidden: insufficient role")
		}
		return c.Next()
	}
}
