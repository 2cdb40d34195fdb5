package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/choreista/platform_be_chores/internal/utils"
)

const (
	EventNewMessage = "new_message"
	EventChoreMatch = "chore_match"
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Notifier pushes events to users. Delivery is best effort and never fails the
// operation that produced the event.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, evt Event)
}

// Broadcaster fans an event out to local websocket clients and to Redis.
// Either side may be nil.
type Broadcaster struct {
	Hub *Hub
	RDB *redis.Client
}

func NewBroadcaster(hub *Hub, rdb *redis.Client) *Broadcaster {
	return &Broadcaster{Hub: hub, RDB: rdb}
}

func (b *Broadcaster) Notify(ctx context.Context, userID uuid.UUID, evt Event) {
	if b == nil {
		return
	}
	if b.Hub != nil {
		b.Hub.SendToUser(userID, evt)
	}
	if b.RDB == nil {
		return
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		utils.Logger.WithError(err).Error("notify: marshal event")
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := b.RDB.Publish(pctx, NotificationChannel(userID.String()), payload).Err(); err != nil {
		utils.Logger.WithError(err).WithField("user_id", userID).Warn("notify: redis publish failed")
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, uuid.UUID, Event) {}
