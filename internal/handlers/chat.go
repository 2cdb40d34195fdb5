package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/choreista/platform_be_chores/internal/realtime"
	"github.com/choreista/platform_be_chores/internal/services/messaging"
	"github.com/choreista/platform_be_chores/internal/utils"
)

type ChatHandler struct {
	Messaging *messaging.MessagingService
	Hub       *realtime.Hub
}

func NewChatHandler(m *messaging.MessagingService, hub *realtime.Hub) *ChatHandler {
	return &ChatHandler{Messaging: m, Hub: hub}
}

// GetThreads lists the threads an owner started or a worker was matched into.
func (h *ChatHandler) GetThreads(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}

	threads, err := h.Messaging.ListThreads(c.UserContext(), uid, getRole(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"messages": threads,
	})
}

func (h *ChatHandler) GetThread(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	threadID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	thread, err := h.Messaging.GetThread(c.UserContext(), threadID, uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"thread":  thread,
	})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	threadID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	msg, err := h.Messaging.PostMessage(c.UserContext(), threadID, uid, req.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": msg,
	})
}

func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return err
	}
	threadID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	thread, err := h.Messaging.MarkRead(c.UserContext(), threadID, uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"thread":  thread,
	})
}

// UpgradeCheck rejects plain HTTP requests on the websocket route.
func UpgradeCheck(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebSocketHandler runs behind RequireAuth, so the caller is already in Locals.
func (h *ChatHandler) WebSocketHandler(c *websocket.Conn) {
	raw, _ := c.Locals("userId").(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		utils.Logger.WithField("user_id", raw).Warn("websocket: missing caller")
		_ = c.Close()
		return
	}
	realtime.Serve(h.Hub, userID, c)
}
