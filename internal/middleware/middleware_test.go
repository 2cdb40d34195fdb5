package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choreista/platform_be_chores/internal/handlers"
	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/utils"
)

type stubAuth map[string]*models.User

func (s stubAuth) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, utils.AuthError("Please authenticate")
}

func newApp(a Authenticator, roles ...models.Role) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(Metrics())
	app.Use(RequestLogger())
	chain := []fiber.Handler{RequireAuth(a)}
	if len(roles) > 0 {
		chain = append(chain, RequireRoles(roles...))
	}
	chain = append(chain, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"userId": c.Locals("userId"),
			"role":   c.Locals("role"),
		})
	})
	app.Get("/me", chain...)
	return app
}

func do(t *testing.T, app *fiber.App, target, authz string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestRequireAuth(t *testing.T) {
	owner := &models.User{ID: uuid.New(), Role: models.RoleChoreOwner}
	app := newApp(stubAuth{"good": owner})

	assert.Equal(t, http.StatusUnauthorized, do(t, app, "/me", ""))
	assert.Equal(t, http.StatusUnauthorized, do(t, app, "/me", "Bearer bad"))
	assert.Equal(t, http.StatusUnauthorized, do(t, app, "/me", "Basic good"))
	assert.Equal(t, http.StatusOK, do(t, app, "/me", "Bearer good"))
	assert.Equal(t, http.StatusOK, do(t, app, "/me", "bearer  good "))
	assert.Equal(t, http.StatusOK, do(t, app, "/me?token=good", ""))
}

func TestRequireRoles(t *testing.T) {
	worker := &models.User{ID: uuid.New(), Role: models.RoleWorker}
	owner := &models.User{ID: uuid.New(), Role: models.RoleChoreOwner}
	app := newApp(stubAuth{"w": worker, "o": owner}, models.RoleChoreOwner)

	assert.Equal(t, http.StatusForbidden, do(t, app, "/me", "Bearer w"))
	assert.Equal(t, http.StatusOK, do(t, app, "/me", "Bearer o"))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken("Token abc"))
}
