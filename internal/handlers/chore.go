package handlers

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/choreista/platform_be_chores/internal/services/chores"
	"github.com/choreista/platform_be_chores/internal/utils"
)

type ChoreHandler struct {
	Chores *chores.ChoresService
}

func NewChoreHandler(s *chores.ChoresService) *ChoreHandler {
	return &ChoreHandler{Chores: s}
}

func textParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	return strings.TrimSpace(raw)
}

func (h *ChoreHandler) Create(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	var req chores.CreateInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	chore, err := h.Chores.Create(c.UserContext(), uid, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"chore":   chore,
	})
}

func (h *ChoreHandler) ListAll(c *fiber.Ctx) error {
	list, err := h.Chores.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "chores": list})
}

func (h *ChoreHandler) ListByCategory(c *fiber.Ctx) error {
	list, err := h.Chores.ListByCategory(c.UserContext(), textParam(c, "category"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "chores": list})
}

func (h *ChoreHandler) ListByOwnerAndCategory(c *fiber.Ctx) error {
	ownerID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.Chores.ListByOwnerAndCategory(c.UserContext(), ownerID, textParam(c, "category"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "chores": list})
}

func (h *ChoreHandler) Search(c *fiber.Ctx) error {
	list, err := h.Chores.Search(c.UserContext(), textParam(c, "query"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "chores": list})
}

func (h *ChoreHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.Chores.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": categories})
}

type applyReq struct {
	ApplicantID string `json:"applicantId"`
	Message     string `json:"message"`
}

// Apply always applies the caller. A body naming somebody else is refused.
func (h *ChoreHandler) Apply(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	choreID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req applyReq
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	if req.ApplicantID != "" && req.ApplicantID != uid.String() {
		return utils.ForbiddenError("You can only apply as yourself")
	}

	res, err := h.Chores.Apply(c.UserContext(), choreID, uid, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"applied": res.Applied,
		"chore":   res.Chore,
		"user":    res.Applicant,
		"token":   getToken(c),
	})
}

func (h *ChoreHandler) Accept(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	choreID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		ApplicantID uuid.UUID `json:"applicantId"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.ApplicantID == uuid.Nil {
		return utils.ValidationError("Validation error", utils.FieldErrors{"applicantId": {"applicantId is required"}})
	}

	res, err := h.Chores.AcceptApplicant(c.UserContext(), choreID, uid, req.ApplicantID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"chore":   res.Chore,
		"thread":  res.Thread,
	})
}

// UpdateStatus moves the chore to started or completed for the worker named
// in the path.
func (h *ChoreHandler) UpdateStatus(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	choreID, err := paramUUID(c, "choreId")
	if err != nil {
		return err
	}
	workerID, err := paramUUID(c, "choreista")
	if err != nil {
		return err
	}

	var req chores.StatusInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.Chores.UpdateStatus(c.UserContext(), choreID, uid, workerID, req)
	if err != nil {
		return err
	}
	body := fiber.Map{
		"success": true,
		"chore":   res.Chore,
		"user":    res.Worker,
	}
	if res.Review != nil {
		body["review"] = res.Review
	}
	if uid == workerID {
		body["token"] = getToken(c)
	}
	return c.JSON(body)
}

func (h *ChoreHandler) Update(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	choreID, err := paramUUID(c, "choreId")
	if err != nil {
		return err
	}

	var req chores.UpdateInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	chore, err := h.Chores.Update(c.UserContext(), choreID, uid, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"chore":   chore,
	})
}

func (h *ChoreHandler) Delete(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	choreID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.Chores.Delete(c.UserContext(), choreID, uid); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *ChoreHandler) MarkPaid(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	choreID, err := paramUUID(c, "choreId")
	if err != nil {
		return err
	}
	workerID, err := paramUUID(c, "choreista")
	if err != nil {
		return err
	}

	res, err := h.Chores.MarkPaid(c.UserContext(), choreID, uid, workerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"chore":   res.Chore,
		"user":    res.Worker,
	})
}
