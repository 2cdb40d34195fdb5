package realtime

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/choreista/platform_be_chores/internal/utils"
)

// WebSocketConn wraps websocket.Conn so the hub does not depend on fiber.
type WebSocketConn struct {
	Conn *websocket.Conn
}

func NewWebSocketConn(c *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{Conn: c}
}

// Serve registers the connection with the hub, pumps hub events to it and
// blocks until the peer goes away.
func Serve(hub *Hub, userID uuid.UUID, c *websocket.Conn) {
	client := NewClient(userID, NewWebSocketConn(c))
	hub.RegisterClient(client)
	defer hub.UnregisterClient(client)

	log := utils.Logger.WithField("user_id", userID)
	log.Info("websocket connected")

	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debug("websocket write")
				return
			}
		}
	}()

	for {
		// inbound frames only keep the connection alive
		if _, _, err := c.ReadMessage(); err != nil {
			log.WithError(err).Debug("websocket closed")
			return
		}
	}
}
