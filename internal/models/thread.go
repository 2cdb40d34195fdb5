package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Thread is the conversation opened between a chore owner (sender) and the
// accepted worker (receiver). There is one thread per unordered user pair.
type Thread struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"senderId"`
	ReceiverID uuid.UUID  `gorm:"type:uuid;index;not null" json:"receiverId"`
	PairKey    string     `gorm:"type:varchar(80);uniqueIndex;not null" json:"-"`
	ChoreID    *uuid.UUID `gorm:"type:uuid;index" json:"choreId,omitempty"`
	Read       *time.Time `json:"read,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Sender   *User           `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User           `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
	Messages []ThreadMessage `gorm:"foreignKey:ThreadID" json:"messages"`
}

func (t *Thread) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.PairKey == "" {
		t.PairKey = PairKey(t.SenderID, t.ReceiverID)
	}
	return
}

// PairKey is order independent: PairKey(a, b) == PairKey(b, a).
func PairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

// Participant reports whether userID is one side of the thread.
func (t *Thread) Participant(userID uuid.UUID) bool {
	return t.SenderID == userID || t.ReceiverID == userID
}

type ThreadMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID  uuid.UUID `gorm:"type:uuid;index;not null" json:"threadId"`
	FromOwner bool      `gorm:"default:false" json:"fromOwner"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *ThreadMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
