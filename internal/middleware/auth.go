package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/utils"
)

// Authenticator resolves a bearer token to the user holding it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// RequireAuth reads the token from the Authorization header, or from the
// token query parameter for websocket upgrades, and stores the caller in
// Locals: userId (string), role, user and token.
func RequireAuth(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			return utils.AuthError("Please authenticate")
		}

		user, err := a.Authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}

		c.Locals("userId", user.ID.String())
		c.Locals("role", string(user.Role))
		c.Locals("user", user)
		c.Locals("token", token)
		return c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
