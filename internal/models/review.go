package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewerID    uuid.UUID `gorm:"type:uuid;index;not null" json:"reviewerId"`
	ReviewedID    uuid.UUID `gorm:"type:uuid;index;not null" json:"reviewedId"`
	ChoreID       uuid.UUID `gorm:"type:uuid;index;not null" json:"choreId"`
	Stars         float64   `json:"stars"`
	Comment       string    `gorm:"type:text" json:"comment"`
	CompletedTime string    `json:"completedTime"`
	CreatedAt     time.Time `json:"createdAt"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
