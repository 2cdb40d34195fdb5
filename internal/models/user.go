package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleChoreOwner Role = "choreowner"
	RoleWorker     Role = "worker"
)

// ParseRole accepts the public role names plus the legacy aliases for workers.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "choreowner", "chore-owner", "owner":
		return RoleChoreOwner, true
	case "worker", "choreista", "student":
		return RoleWorker, true
	}
	return "", false
}

type ResidentialAddress struct {
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zipcode       string `json:"zipcode"`
}

type GuardianInformation struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

type DrivingLicense struct {
	LicenceNumber  string `json:"licenceNumber"`
	ExpirationDate string `json:"expirationDate"`
	LicenceImage   string `json:"licenceImage"`
}

type EmergencyContact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Location string `json:"location"`
}

type NotificationSettings struct {
	Chores          bool `json:"chores"`
	Matches         bool `json:"matches"`
	Message         bool `json:"message"`
	ScheduledChores bool `json:"scheduledChores"`
	ParentAlerts    bool `json:"parentAlerts"`
	ChoreLocation   bool `json:"choreLocation"`
}

// DefaultNotifications has every channel switched on.
func DefaultNotifications() NotificationSettings {
	return NotificationSettings{true, true, true, true, true, true}
}

type AvailabilitySlot struct {
	Day    string     `json:"day"`
	Start  *time.Time `json:"start,omitempty"`
	End    *time.Time `json:"end,omitempty"`
	Switch bool       `json:"switch"`
}

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	PhoneNumber string    `gorm:"type:varchar(30)" json:"phoneNumber"`
	DateOfBirth string    `json:"dateOfBirth"`

	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null;index" json:"role"`

	ResidentialAddress  ResidentialAddress  `gorm:"embedded;embeddedPrefix:residential_" json:"residentialAddress"`
	GuardianInformation GuardianInformation `gorm:"embedded;embeddedPrefix:guardian_" json:"guardianInformation"`
	DrivingLicense      DrivingLicense      `gorm:"embedded;embeddedPrefix:licence_" json:"drivingLicense"`
	EmergencyContact    EmergencyContact    `gorm:"embedded;embeddedPrefix:emergency_" json:"emergencyContact"`

	Notifications    datatypes.JSONType[NotificationSettings] `json:"notifications"`
	Availability     datatypes.JSONSlice[AvailabilitySlot]    `json:"availability"`
	ChorePreferences datatypes.JSONSlice[string]              `json:"chorePreferences"`
	ProfilePicture   string                                   `gorm:"type:text" json:"profilePicture"`

	RegisterCode      string `gorm:"type:varchar(16)" json:"-"`
	ResetPasswordCode string `gorm:"type:varchar(16)" json:"-"`
	IsVerified        bool   `gorm:"default:false" json:"isVerified"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Chores []UserChore `gorm:"foreignKey:UserID" json:"chores"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserChore is a user's own view of a chore's progress. Entries are appended in
// order and are not removed when the chore is deleted.
type UserChore struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;index" json:"-"`
	ChoreID        uuid.UUID `gorm:"type:uuid;index" json:"choreId"`
	ChoreStarted   bool      `gorm:"default:false" json:"choreStarted"`
	ChoreCompleted bool      `gorm:"default:false" json:"choreCompleted"`
	Paid           bool      `gorm:"default:false" json:"paid"`
	CreatedAt      time.Time `json:"createdAt"`

	Chore *Chore `gorm:"foreignKey:ChoreID" json:"chore,omitempty"`
}

func (c *UserChore) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
