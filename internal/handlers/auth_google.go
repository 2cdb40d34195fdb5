package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/choreista/platform_be_chores/internal/services/auth"
	"github.com/choreista/platform_be_chores/internal/utils"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleOAuthHandler struct {
	Auth            *auth.AuthService
	OAuth           *oauth2.Config
	FrontendBaseURL string
	UserInfoURL     string
}

func NewGoogleOAuthHandler(a *auth.AuthService, clientID, secret, redirect, frontend string) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		Auth: a,
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: secret,
			RedirectURL:  redirect,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		FrontendBaseURL: strings.TrimRight(frontend, "/"),
		UserInfoURL:     googleUserInfoURL,
	}
}

func stateCookie(name, value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		MaxAge:   maxAge,
	}
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	next := c.Query("next", "/")
	st := utils.RandomState(32)

	c.Cookie(stateCookie("oauth_state", st, 10*60))
	c.Cookie(stateCookie("oauth_next", next, 10*60))

	return c.Redirect(h.OAuth.AuthCodeURL(st, oauth2.AccessTypeOnline), http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// GoogleCallback exchanges the code, signs the user in and hands the session
// token to the frontend in the URL fragment.
func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return utils.ValidationError("Missing code/state", nil)
	}

	stCookie := c.Cookies("oauth_state")
	next := c.Cookies("oauth_next")
	if stCookie == "" || stCookie != state {
		return utils.ValidationError("Invalid state", nil)
	}
	c.Cookie(stateCookie("oauth_state", "", -1))
	c.Cookie(stateCookie("oauth_next", "", -1))

	ctx := c.UserContext()
	tok, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		return utils.AuthError("Failed to exchange code")
	}

	resp, err := h.OAuth.Client(ctx, tok).Get(h.UserInfoURL)
	if err != nil {
		return utils.AuthError("Failed to fetch userinfo")
	}
	defer resp.Body.Close()

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return utils.AuthError("Failed to decode userinfo")
	}
	if !gu.VerifiedEmail {
		return utils.AuthError("Google account email is not verified")
	}

	sess, err := h.Auth.SignInWithEmail(ctx, gu.Email, strings.TrimSpace(gu.GivenName), strings.TrimSpace(gu.FamilyName))
	if err != nil {
		return err
	}

	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	return c.Redirect(h.FrontendBaseURL+next+"#token="+url.QueryEscape(sess.Token), http.StatusTemporaryRedirect)
}
