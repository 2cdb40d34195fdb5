package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/utils"
)

type ReviewsService struct {
	DB *gorm.DB
}

func NewReviewsService(db *gorm.DB) *ReviewsService {
	return &ReviewsService{DB: db}
}

type Input struct {
	ReviewerID    uuid.UUID `json:"reviewer"`
	ReviewedID    uuid.UUID `json:"reviewed"`
	ChoreID       uuid.UUID `json:"chore"`
	Stars         float64   `json:"stars"`
	Comment       string    `json:"comment"`
	CompletedTime string    `json:"completedTime"`
}

// Create inserts a review. Stars are stored as given and repeated reviews for
// the same chore are allowed.
func (s *ReviewsService) Create(ctx context.Context, in Input) (*models.Review, error) {
	return s.CreateTx(s.DB.WithContext(ctx), in)
}

// CreateTx is Create on an open transaction.
func (s *ReviewsService) CreateTx(tx *gorm.DB, in Input) (*models.Review, error) {
	fields := utils.FieldErrors{}
	if in.ReviewerID == uuid.Nil {
		fields.Add("reviewer", "reviewer is required")
	}
	if in.ReviewedID == uuid.Nil {
		fields.Add("reviewed", "reviewed is required")
	}
	if in.ChoreID == uuid.Nil {
		fields.Add("chore", "chore is required")
	}
	if len(fields) > 0 {
		return nil, utils.ValidationError("Validation error", fields)
	}

	r := &models.Review{
		ReviewerID:    in.ReviewerID,
		ReviewedID:    in.ReviewedID,
		ChoreID:       in.ChoreID,
		Stars:         in.Stars,
		Comment:       in.Comment,
		CompletedTime: in.CompletedTime,
	}
	if err := tx.Create(r).Error; err != nil {
		return nil, utils.InternalError(err)
	}
	return r, nil
}

// ListForReviewedUser returns the reviews about userID with each reviewer attached.
func (s *ReviewsService) ListForReviewedUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	var out []models.Review
	err := s.DB.WithContext(ctx).
		Preload("Reviewer").
		Where("reviewed_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, utils.InternalError(err)
	}
	return out, nil
}
