package users

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/services/storage"
	"github.com/choreista/platform_be_chores/internal/utils"
)

// CascadePolicy lists what goes with an account besides its sessions and
// chore entries.
type CascadePolicy struct {
	OwnChores         bool
	ThreadsAsSender   bool
	ThreadsAsReceiver bool
	ReviewsAuthored   bool
	ReviewsReceived   bool
}

// DefaultCascade keeps the historical per-role rules: owners lose the threads
// they started and the reviews they wrote, workers the threads they were
// matched into and the reviews about them. Both lose the chores they created.
var DefaultCascade = map[models.Role]CascadePolicy{
	models.RoleChoreOwner: {OwnChores: true, ThreadsAsSender: true, ReviewsAuthored: true},
	models.RoleWorker:     {OwnChores: true, ThreadsAsReceiver: true, ReviewsReceived: true},
}

type UsersService struct {
	DB         *gorm.DB
	Store      storage.ObjectStore
	Cascade    map[models.Role]CascadePolicy
	BcryptCost int
	now        func() time.Time
}

func NewUsersService(db *gorm.DB, store storage.ObjectStore, bcryptCost int) *UsersService {
	return &UsersService{DB: db, Store: store, Cascade: DefaultCascade, BcryptCost: bcryptCost, now: time.Now}
}

// GetProfile returns the user with their chore entries and the chores behind them.
func (s *UsersService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).
		Preload("Chores", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Chores.Chore").
		First(&user, "id = ?", userID).Error
	if err != nil {
		return nil, utils.NotFoundOr(err, "User not found")
	}
	return &user, nil
}

// ProfileUpdate is the set of profile fields a user may change. Nil fields are
// left untouched.
type ProfileUpdate struct {
	FirstName           *string                      `json:"firstName"`
	LastName            *string                      `json:"lastName"`
	Password            *string                      `json:"password"`
	Email               *string                      `json:"email"`
	PhoneNumber         *string                      `json:"phoneNumber"`
	ChorePreferences    *[]string                    `json:"chorePreferences"`
	DateOfBirth         *string                      `json:"dateOfBirth"`
	GuardianInformation *models.GuardianInformation  `json:"guardianInformation"`
	ResidentialAddress  *models.ResidentialAddress   `json:"residentialAddress"`
	Availability        *[]models.AvailabilitySlot   `json:"availability"`
	LicenceNumber       *string                      `json:"licenceNumber"`
	ExpirationDate      *string                      `json:"expirationDate"`
	EmergencyContact    *models.EmergencyContact     `json:"emergencyContact"`
	Notifications       *models.NotificationSettings `json:"notifications"`
}

// Upload is a file attached to a profile update.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UpdateProfile applies a partial update. An attached file becomes the licence
// image when the update carries a licence number and the profile picture otherwise.
func (s *UsersService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileUpdate, file *Upload) (*models.User, error) {
	db := s.DB.WithContext(ctx)
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, utils.NotFoundOr(err, "User not found")
	}

	fields := utils.FieldErrors{}
	changed := file != nil

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
		changed = true
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
		changed = true
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := utils.ValidateStruct(struct {
			Email string `json:"email" validate:"required,email"`
		}{email}); err != nil {
			fields.Add("email", "Email is invalid")
		} else if email != user.Email {
			var taken int64
			if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&taken).Error; err != nil {
				return nil, utils.InternalError(err)
			}
			if taken > 0 {
				return nil, utils.ConflictError("Email already exists", utils.FieldErrors{"email": {"Email already exists"}})
			}
			user.Email = email
		}
		changed = true
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			fields.Add("password", "password must be at least 8 characters")
		} else if !utils.PasswordFits(*in.Password) {
			fields.Add("password", fmt.Sprintf("password must be at most %d bytes", utils.MaxPasswordBytes))
		} else {
			hash, err := utils.HashPassword(*in.Password, s.BcryptCost)
			if err != nil {
				return nil, utils.InternalError(err)
			}
			user.Password = hash
		}
		changed = true
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*in.PhoneNumber)
		changed = true
	}
	if in.ChorePreferences != nil {
		user.ChorePreferences = datatypes.JSONSlice[string](*in.ChorePreferences)
		changed = true
	}
	if in.DateOfBirth != nil {
		user.DateOfBirth = strings.TrimSpace(*in.DateOfBirth)
		changed = true
	}
	if in.GuardianInformation != nil {
		user.GuardianInformation = *in.GuardianInformation
		changed = true
	}
	if in.ResidentialAddress != nil {
		user.ResidentialAddress = *in.ResidentialAddress
		changed = true
	}
	if in.Availability != nil {
		user.Availability = datatypes.JSONSlice[models.AvailabilitySlot](*in.Availability)
		changed = true
	}
	if in.LicenceNumber != nil {
		user.DrivingLicense.LicenceNumber = strings.TrimSpace(*in.LicenceNumber)
		changed = true
	}
	if in.ExpirationDate != nil {
		user.DrivingLicense.ExpirationDate = strings.TrimSpace(*in.ExpirationDate)
		changed = true
	}
	if in.EmergencyContact != nil {
		user.EmergencyContact = *in.EmergencyContact
		changed = true
	}
	if in.Notifications != nil {
		user.Notifications = datatypes.NewJSONType(*in.Notifications)
		changed = true
	}
	if file != nil {
		if !storage.Allowed(file.Filename) {
			fields.Add("file", "file must be jpg, jpeg, png, gif, mp4 or pdf")
		} else if file.Size > storage.MaxUploadSize {
			fields.Add("file", fmt.Sprintf("file must be at most %d bytes", storage.MaxUploadSize))
		}
	}

	if len(fields) > 0 {
		return nil, utils.ValidationError("Invalid updates", fields)
	}
	if !changed {
		return nil, utils.ValidationError("Invalid updates", nil)
	}

	if file != nil {
		if s.Store == nil {
			return nil, utils.InternalError(fmt.Errorf("no object store configured"))
		}
		key := storage.ObjectKey(user.ID, file.Filename, s.now())
		url, err := s.Store.Put(ctx, key, file.Body, file.Size, file.ContentType)
		if err != nil {
			return nil, utils.InternalError(err)
		}
		if in.LicenceNumber != nil {
			user.DrivingLicense.LicenceImage = url
		} else {
			user.ProfilePicture = url
		}
	}

	if err := db.Omit(clause.Associations).Save(&user).Error; err != nil {
		return nil, utils.InternalError(err)
	}
	return s.GetProfile(ctx, userID)
}

type CascadeReport struct {
	Chores  int64 `json:"chores"`
	Threads int64 `json:"threads"`
	Reviews int64 `json:"reviews"`
}

// DeleteAccount resolves userType to a role and runs CascadeDelete.
func (s *UsersService) DeleteAccount(ctx context.Context, userID uuid.UUID, userType string) (*CascadeReport, error) {
	role, ok := models.ParseRole(userType)
	if !ok {
		return nil, utils.ValidationError("Validation error", utils.FieldErrors{"userType": {"userType must be choreowner or worker"}})
	}
	return s.CascadeDelete(ctx, role, userID)
}

// CascadeDelete removes the account and whatever the role's policy names, in
// one transaction.
func (s *UsersService) CascadeDelete(ctx context.Context, role models.Role, userID uuid.UUID) (*CascadeReport, error) {
	policy, ok := s.Cascade[role]
	if !ok {
		return nil, utils.ValidationError("Validation error", utils.FieldErrors{"userType": {"unknown role"}})
	}

	report := &CascadeReport{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return utils.NotFoundOr(err, "User not found")
		}

		if policy.OwnChores {
			var ids []uuid.UUID
			if err := tx.Model(&models.Chore{}).Where("creator_id = ?", userID).Pluck("id", &ids).Error; err != nil {
				return err
			}
			if len(ids) > 0 {
				if err := tx.Where("chore_id IN ?", ids).Delete(&models.Applicant{}).Error; err != nil {
					return err
				}
				res := tx.Where("id IN ?", ids).Delete(&models.Chore{})
				if res.Error != nil {
					return res.Error
				}
				report.Chores = res.RowsAffected
			}
		}

		var threadCols []string
		if policy.ThreadsAsSender {
			threadCols = append(threadCols, "sender_id")
		}
		if policy.ThreadsAsReceiver {
			threadCols = append(threadCols, "receiver_id")
		}
		for _, col := range threadCols {
			var ids []uuid.UUID
			if err := tx.Model(&models.Thread{}).Where(col+" = ?", userID).Pluck("id", &ids).Error; err != nil {
				return err
			}
			if len(ids) == 0 {
				continue
			}
			if err := tx.Where("thread_id IN ?", ids).Delete(&models.ThreadMessage{}).Error; err != nil {
				return err
			}
			res := tx.Where("id IN ?", ids).Delete(&models.Thread{})
			if res.Error != nil {
				return res.Error
			}
			report.Threads += res.RowsAffected
		}

		var reviewCols []string
		if policy.ReviewsAuthored {
			reviewCols = append(reviewCols, "reviewer_id")
		}
		if policy.ReviewsReceived {
			reviewCols = append(reviewCols, "reviewed_id")
		}
		for _, col := range reviewCols {
			res := tx.Where(col+" = ?", userID).Delete(&models.Review{})
			if res.Error != nil {
				return res.Error
			}
			report.Reviews += res.RowsAffected
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserChore{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		return nil, utils.AsAppError(err)
	}

	utils.Logger.WithField("user_id", userID).
		WithField("role", role).
		Infof("account deleted: %d chores, %d threads, %d reviews", report.Chores, report.Threads, report.Reviews)
	return report, nil
}
