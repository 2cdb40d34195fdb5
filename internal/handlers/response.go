package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/utils"
)

// ErrorHandler renders every error that escapes a handler as the
// {success:false, error, code, errors?} envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"error":   fe.Message,
			"code":    fiberCode(fe.Code),
		})
	}

	appErr := utils.AsAppError(err)
	if appErr.StatusCode >= fiber.StatusInternalServerError {
		utils.Logger.WithError(err).WithField("path", c.Path()).Error("request failed")
	}

	body := fiber.Map{
		"success": false,
		"error":   appErr.Message,
		"code":    appErr.Code,
	}
	if len(appErr.Fields) > 0 {
		body["errors"] = appErr.Fields
	}
	return c.Status(appErr.StatusCode).JSON(body)
}

func fiberCode(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
		return utils.ErrCodeValidation
	case fiber.StatusUnauthorized:
		return utils.ErrCodeAuth
	case fiber.StatusForbidden:
		return utils.ErrCodeForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return utils.ErrCodeNotFound
	case fiber.StatusConflict:
		return utils.ErrCodeConflict
	}
	return utils.ErrCodeInternal
}

func getUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	v := c.Locals("userId")
	if v == nil {
		return uuid.Nil, utils.AuthError("Please authenticate")
	}

	var (
		id  uuid.UUID
		err error
	)
	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		id, err = uuid.Parse(t)
	case []byte:
		id, err = uuid.ParseBytes(t)
	default:
		return uuid.Nil, utils.AuthError("Please authenticate")
	}
	if err != nil {
		return uuid.Nil, utils.AuthError("Please authenticate")
	}
	return id, nil
}

func getRole(c *fiber.Ctx) models.Role {
	role, _ := c.Locals("role").(string)
	return models.Role(role)
}

func getToken(c *fiber.Ctx) string {
	token, _ := c.Locals("token").(string)
	return token
}

// paramUUID parses a path parameter, answering 400 on malformed ids.
func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, utils.ValidationError("Invalid id", utils.FieldErrors{name: {name + " must be a valid id"}})
	}
	return id, nil
}

// parseBody decodes the JSON body with unknown fields rejected.
func parseBody(c *fiber.Ctx, v interface{}) error {
	return utils.DecodeStrict(c.Body(), v)
}
