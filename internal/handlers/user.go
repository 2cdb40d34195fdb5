package handlers

import (
	"encoding/json"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/choreista/platform_be_chores/internal/services/users"
	"github.com/choreista/platform_be_chores/internal/utils"
)

type UserHandler struct {
	Users *users.UsersService
}

func NewUserHandler(s *users.UsersService) *UserHandler {
	return &UserHandler{Users: s}
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	user, err := h.Users.GetProfile(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// UpdateProfile accepts either a JSON body or a multipart form carrying the
// same keys plus an optional "file" part.
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	var (
		req  users.ProfileUpdate
		file *users.Upload
	)
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return utils.ValidationError("Invalid request body", nil)
		}
		if err := decodeForm(form.Value, &req); err != nil {
			return err
		}
		if fh := firstFile(form, "file"); fh != nil {
			f, err := fh.Open()
			if err != nil {
				return utils.InternalError(err)
			}
			defer f.Close()
			file = &users.Upload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get(fiber.HeaderContentType),
				Size:        fh.Size,
				Body:        f,
			}
		}
	} else if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.Users.UpdateProfile(c.UserContext(), uid, req, file)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
		"token":   getToken(c),
	})
}

func firstFile(form *multipart.Form, key string) *multipart.FileHeader {
	if files := form.File[key]; len(files) > 0 {
		return files[0]
	}
	return nil
}

// decodeForm turns form values into a JSON document and decodes it strictly.
// Values that look like JSON objects or arrays are kept as raw JSON so nested
// fields can be sent through a form.
func decodeForm(values map[string][]string, v interface{}) error {
	doc := make(map[string]json.RawMessage, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		val := strings.TrimSpace(vals[0])
		if (strings.HasPrefix(val, "{") || strings.HasPrefix(val, "[")) && json.Valid([]byte(val)) {
			doc[key] = json.RawMessage(val)
			continue
		}
		raw, err := json.Marshal(vals[0])
		if err != nil {
			return utils.InternalError(err)
		}
		doc[key] = raw
	}
	if len(doc) == 0 {
		return nil
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return utils.InternalError(err)
	}
	return utils.DecodeStrict(body, v)
}

// DeleteAccount removes the caller and what they own, dispatching on the
// account type in the path.
func (h *UserHandler) DeleteAccount(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	report, err := h.Users.DeleteAccount(c.UserContext(), uid, c.Params("userType"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"deleted": report,
	})
}
