package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/choreista/platform_be_chores/internal/services/reviews"
	"github.com/choreista/platform_be_chores/internal/utils"
)

type ReviewHandler struct {
	Reviews *reviews.ReviewsService
}

func NewReviewHandler(s *reviews.ReviewsService) *ReviewHandler {
	return &ReviewHandler{Reviews: s}
}

// Create records a review authored by the caller.
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	var req reviews.Input
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.ReviewerID != uuid.Nil && req.ReviewerID != uid {
		return utils.ForbiddenError("You can only review as yourself")
	}
	req.ReviewerID = uid

	review, err := h.Reviews.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"review":  review,
	})
}

// ListForUser lists the reviews written about the user in the path.
func (h *ReviewHandler) ListForUser(c *fiber.Ctx) error {
	userID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.Reviews.ListForReviewedUser(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "reviews": list})
}

// ListMine lists the reviews written about the caller.
func (h *ReviewHandler) ListMine(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	list, err := h.Reviews.ListForReviewedUser(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "reviews": list})
}
