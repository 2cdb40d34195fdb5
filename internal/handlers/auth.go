package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/choreista/platform_be_chores/internal/services/auth"
)

type AuthHandler struct {
	Auth *auth.AuthService
}

func NewAuthHandler(a *auth.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req auth.RegisterInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	sess, err := h.Auth.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    sess.User,
		"token":   sess.Token,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req auth.LoginInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	sess, err := h.Auth.Login(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    sess.User,
		"token":   sess.Token,
	})
}

type confirmReq struct {
	Code              string `json:"code"`
	RegisterCode      string `json:"registerCode"`
	ResetPasswordCode string `json:"resetPasswordCode"`
}

func (r confirmReq) value() string {
	for _, v := range []string{r.Code, r.RegisterCode, r.ResetPasswordCode} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (h *AuthHandler) Confirm(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	var req confirmReq
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.Auth.Confirm(c.UserContext(), uid, req.value())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

func (h *AuthHandler) ResendCode(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	if _, err := h.Auth.ResendCode(c.UserContext(), uid); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Confirmation code sent",
	})
}

// SendResetCode answers the same way whether or not mail delivery succeeds;
// only an unknown address is reported.
func (h *AuthHandler) SendResetCode(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.Auth.SendResetCode(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Reset code sent",
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req auth.ResetPasswordInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	sess, err := h.Auth.ResetPassword(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    sess.User,
		"token":   sess.Token,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.Auth.Logout(c.UserContext(), getToken(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	if err := h.Auth.LogoutAll(c.UserContext(), uid); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
