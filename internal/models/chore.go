package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
)

// Progress mirrors the chore's start/complete flag pair.
type Progress struct {
	Status  bool   `gorm:"column:status" json:"status"`
	Message string `gorm:"column:status_message;type:varchar(20)" json:"message"`
}

type Chore struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatorID   uuid.UUID `gorm:"type:uuid;index;not null" json:"creatorId"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Category    string    `gorm:"index" json:"category"`
	Date        string    `gorm:"not null" json:"date"`
	StartTime   string    `gorm:"not null" json:"startTime"`
	EndTime     string    `gorm:"not null" json:"endTime"`

	AcceptedApplicant bool     `gorm:"default:false" json:"acceptedApplicant"`
	Progress          Progress `gorm:"embedded;embeddedPrefix:progress_" json:"choreStarted"`

	Completed     bool       `gorm:"default:false" json:"completed"`
	CompletedDate *time.Time `json:"completedDate,omitempty"`
	CompletedTime string     `json:"completedTime"`
	TotalHours    float64    `json:"totalHours"`
	PayRate       float64    `json:"payRate"`
	Paid          bool       `gorm:"default:false" json:"paid"`
	IsDeleted     bool       `gorm:"default:false" json:"isDeleted"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Creator    *User       `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Applicants []Applicant `gorm:"foreignKey:ChoreID" json:"applicants"`
}

func (c *Chore) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// Applicant is a worker's bid on a chore. (chore_id, applicant_id) is unique.
type Applicant struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChoreID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applicant_chore" json:"choreId"`
	ApplicantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applicant_chore;index" json:"applicantId"`
	Message       string    `gorm:"type:text" json:"message"`
	ChoreAccepted bool      `gorm:"default:false" json:"choreAccepted"`
	CreatedAt     time.Time `json:"createdAt"`

	Applicant *User `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
}

func (a *Applicant) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
