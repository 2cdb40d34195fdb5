package chores

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/choreista/platform_be_chores/internal/metrics"
	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/services/messaging"
	"github.com/choreista/platform_be_chores/internal/services/reviews"
	"github.com/choreista/platform_be_chores/internal/utils"
)

// TrackingPolicy decides how a worker's chore list grows.
type TrackingPolicy string

const (
	// TrackLegacy appends an entry at apply and another at accept.
	TrackLegacy TrackingPolicy = "legacy"
	// TrackDedupe skips the accept-time entry when one already exists.
	TrackDedupe TrackingPolicy = "dedupe"
)

func ParseTrackingPolicy(s string) TrackingPolicy {
	if TrackingPolicy(strings.ToLower(strings.TrimSpace(s))) == TrackDedupe {
		return TrackDedupe
	}
	return TrackLegacy
}

type ChoresService struct {
	DB        *gorm.DB
	Messaging *messaging.MessagingService
	Reviews   *reviews.ReviewsService
	Tracking  TrackingPolicy
	now       func() time.Time
}

func NewChoresService(db *gorm.DB, msg *messaging.MessagingService, rev *reviews.ReviewsService, policy TrackingPolicy) *ChoresService {
	return &ChoresService{DB: db, Messaging: msg, Reviews: rev, Tracking: policy, now: time.Now}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Creator").
		Preload("Applicants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Applicants.Applicant")
}

func (s *ChoresService) load(db *gorm.DB, choreID uuid.UUID) (*models.Chore, error) {
	var chore models.Chore
	if err := withDetails(db).First(&chore, "id = ?", choreID).Error; err != nil {
		return nil, utils.NotFoundOr(err, "Chore not found")
	}
	return &chore, nil
}

func (s *ChoresService) loadUser(db *gorm.DB, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := db.
		Preload("Chores", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Chores.Chore").
		First(&user, "id = ?", userID).Error
	if err != nil {
		return nil, utils.NotFoundOr(err, "User not found")
	}
	return &user, nil
}

func (s *ChoresService) Get(ctx context.Context, choreID uuid.UUID) (*models.Chore, error) {
	return s.load(s.DB.WithContext(ctx), choreID)
}

type CreateInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"max=100"`
	Date        string `json:"date" validate:"required"`
	StartTime   string `json:"startTime" validate:"required"`
	EndTime     string `json:"endTime" validate:"required"`
}

func (in *CreateInput) trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Date = strings.TrimSpace(in.Date)
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndTime = strings.TrimSpace(in.EndTime)
}

func (s *ChoresService) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*models.Chore, error) {
	in.trim()
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	chore := &models.Chore{
		CreatorID:   ownerID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Date:        in.Date,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
	}
	db := s.DB.WithContext(ctx)
	if err := db.Create(chore).Error; err != nil {
		return nil, utils.InternalError(err)
	}
	metrics.RecordChoreTransition(metrics.TransitionCreated)
	return s.load(db, chore.ID)
}

func (s *ChoresService) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]models.Chore, error) {
	var out []models.Chore
	q := withDetails(s.DB.WithContext(ctx)).Where("is_deleted = ?", false)
	if err := scope(q).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, utils.InternalError(err)
	}
	return out, nil
}

func requireCategory(category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return "", utils.ValidationError("Validation error", utils.FieldErrors{"category": {"category is required"}})
	}
	return category, nil
}

// ListByOwnerAndCategory returns the owner's chores in exactly category.
func (s *ChoresService) ListByOwnerAndCategory(ctx context.Context, ownerID uuid.UUID, category string) ([]models.Chore, error) {
	category, err := requireCategory(category)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("creator_id = ? AND category = ?", ownerID, category)
	})
}

// ListByCategory returns every owner's chores in exactly category.
func (s *ChoresService) ListByCategory(ctx context.Context, category string) ([]models.Chore, error) {
	category, err := requireCategory(category)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("category = ?", category)
	})
}

func (s *ChoresService) ListAll(ctx context.Context) ([]models.Chore, error) {
	return s.list(ctx, func(db *gorm.DB) *gorm.DB { return db })
}

// Search matches query as a case-insensitive substring of the title. LIKE
// wildcards in query are matched literally.
func (s *ChoresService) Search(ctx context.Context, query string) ([]models.Chore, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, utils.ValidationError("Validation error", utils.FieldErrors{"query": {"query is required"}})
	}
	return s.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where(`LOWER(title) LIKE ? ESCAPE '\'`, utils.ContainsPattern(query))
	})
}

// Categories lists the distinct non-empty categories in use.
func (s *ChoresService) Categories(ctx context.Context) ([]string, error) {
	out := []string{}
	err := s.DB.WithContext(ctx).
		Model(&models.Chore{}).
		Where("category <> '' AND is_deleted = ?", false).
		Distinct().
		Order("category ASC").
		Pluck("category", &out).Error
	if err != nil {
		return nil, utils.InternalError(err)
	}
	return out, nil
}

type ApplyResult struct {
	Chore     *models.Chore
	Applicant *models.User
	// Applied is false when the applicant was already on the chore.
	Applied bool
}

// Apply adds applicantID to the chore once. Repeated calls are no-ops.
func (s *ChoresService) Apply(ctx context.Context, choreID, applicantID uuid.UUID, message string) (*ApplyResult, error) {
	db := s.DB.WithContext(ctx)
	chore, err := s.load(db, choreID)
	if err != nil {
		return nil, err
	}
	if chore.CreatorID == applicantID {
		return nil, utils.ForbiddenError("You cannot apply to your own chore")
	}

	applied := false
	err = db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Applicant{}).
			Where("chore_id = ? AND applicant_id = ?", choreID, applicantID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		if chore.AcceptedApplicant {
			return utils.ConflictError("Chore already has an accepted applicant", nil)
		}

		app := models.Applicant{ChoreID: choreID, ApplicantID: applicantID, Message: strings.TrimSpace(message)}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&app)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		return tx.Create(&models.UserChore{UserID: applicantID, ChoreID: choreID}).Error
	})
	if err != nil {
		return nil, wrap(err)
	}
	if applied {
		metrics.RecordChoreTransition(metrics.TransitionApplied)
	}

	if chore, err = s.load(db, choreID); err != nil {
		return nil, err
	}
	user, err := s.loadUser(db, applicantID)
	if err != nil {
		return nil, err
	}
	return &ApplyResult{Chore: chore, Applicant: user, Applied: applied}, nil
}

type AcceptResult struct {
	Chore  *models.Chore
	Thread *models.Thread
}

// AcceptApplicant marks one applicant accepted, opens the match thread and
// records the chore on the worker, all in one transaction.
func (s *ChoresService) AcceptApplicant(ctx context.Context, choreID, ownerID, applicantID uuid.UUID) (*AcceptResult, error) {
	db := s.DB.WithContext(ctx)
	chore, err := s.load(db, choreID)
	if err != nil {
		return nil, err
	}
	if chore.CreatorID != ownerID {
		return nil, utils.ForbiddenError("Only the chore owner can accept applicants")
	}

	var app models.Applicant
	if err := db.Where("chore_id = ? AND applicant_id = ?", choreID, applicantID).First(&app).Error; err != nil {
		return nil, utils.NotFoundOr(err, "Applicant not found")
	}
	if app.ChoreAccepted {
		return &AcceptResult{Chore: chore}, nil
	}

	var thread *models.Thread
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Chore{}).
			Where("id = ? AND accepted_applicant = ?", choreID, false).
			Update("accepted_applicant", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ConflictError("Chore already has an accepted applicant", nil)
		}
		if err := tx.Model(&app).Update("chore_accepted", true).Error; err != nil {
			return err
		}

		var err error
		thread, err = s.Messaging.OnAccept(tx, choreID, ownerID, applicantID, chore.Creator.DisplayName(), chore.Title)
		if err != nil {
			return err
		}
		return s.track(tx, applicantID, choreID)
	})
	if err != nil {
		return nil, wrap(err)
	}

	metrics.RecordChoreTransition(metrics.TransitionAccepted)
	s.Messaging.NotifyMatch(ctx, thread)

	if chore, err = s.load(db, choreID); err != nil {
		return nil, err
	}
	return &AcceptResult{Chore: chore, Thread: thread}, nil
}

func (s *ChoresService) track(tx *gorm.DB, userID, choreID uuid.UUID) error {
	if s.Tracking == TrackDedupe {
		var n int64
		if err := tx.Model(&models.UserChore{}).
			Where("user_id = ? AND chore_id = ?", userID, choreID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}
	return tx.Create(&models.UserChore{UserID: userID, ChoreID: choreID}).Error
}

// ReviewInput is the optional review carried by a status update. Missing
// parties default to the chore owner reviewing the worker.
type ReviewInput struct {
	Reviewer      *uuid.UUID `json:"reviewer"`
	Reviewed      *uuid.UUID `json:"reviewed"`
	Stars         float64    `json:"stars"`
	Comment       string     `json:"comment"`
	CompletedTime string     `json:"completedTime"`
}

type StatusInput struct {
	Status        string       `json:"status"`
	CompletedTime string       `json:"completedTime"`
	TotalHours    float64      `json:"totalHours"`
	PayRate       float64      `json:"payRate"`
	Review        *ReviewInput `json:"reviews"`
}

type StatusResult struct {
	Chore  *models.Chore
	Worker *models.User
	Review *models.Review
}

// UpdateStatus moves an accepted chore to started or completed. Either the
// owner or the accepted worker may call it; a completed chore is final.
func (s *ChoresService) UpdateStatus(ctx context.Context, choreID, actorID, workerID uuid.UUID, in StatusInput) (*StatusResult, error) {
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status != models.StatusStarted && status != models.StatusCompleted {
		return nil, utils.ValidationError("Validation error", utils.FieldErrors{"status": {"status must be one of: started completed"}})
	}

	db := s.DB.WithContext(ctx)
	chore, err := s.load(db, choreID)
	if err != nil {
		return nil, err
	}
	if actorID != chore.CreatorID && actorID != workerID {
		return nil, utils.ForbiddenError("Only the chore owner or the assigned worker can update the status")
	}
	if chore.Completed {
		return nil, utils.ConflictError("Chore is already completed", nil)
	}

	var accepted int64
	if err := db.Model(&models.Applicant{}).
		Where("chore_id = ? AND applicant_id = ? AND chore_accepted = ?", choreID, workerID, true).
		Count(&accepted).Error; err != nil {
		return nil, utils.InternalError(err)
	}
	if accepted == 0 {
		return nil, utils.ValidationError("Worker is not the accepted applicant for this chore", nil)
	}

	// A status review is always written by the caller about the other party.
	counterpart := chore.CreatorID
	if actorID == chore.CreatorID {
		counterpart = workerID
	}
	if in.Review != nil {
		if in.Review.Reviewer != nil && *in.Review.Reviewer != actorID {
			return nil, utils.ForbiddenError("You can only submit reviews as yourself")
		}
		if in.Review.Reviewed != nil && *in.Review.Reviewed != counterpart {
			return nil, utils.ForbiddenError("Reviews must be about the other party of the chore")
		}
	}

	var review *models.Review
	err = db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"progress_status":         true,
			"progress_status_message": status,
		}
		entry := map[string]interface{}{"chore_started": true}
		if status == models.StatusCompleted {
			updates["completed"] = true
			updates["completed_date"] = s.now().UTC()
			updates["completed_time"] = in.CompletedTime
			updates["total_hours"] = in.TotalHours
			updates["pay_rate"] = in.PayRate
			entry["chore_completed"] = true
		}
		if err := tx.Model(&models.Chore{}).Where("id = ?", choreID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.UserChore{}).
			Where("user_id = ? AND chore_id = ?", workerID, choreID).
			Updates(entry).Error; err != nil {
			return err
		}

		if in.Review == nil {
			return nil
		}
		rin := reviews.Input{
			ReviewerID:    actorID,
			ReviewedID:    counterpart,
			ChoreID:       choreID,
			Stars:         in.Review.Stars,
			Comment:       in.Review.Comment,
			CompletedTime: in.Review.CompletedTime,
		}
		if rin.CompletedTime == "" {
			rin.CompletedTime = in.CompletedTime
		}
		var err error
		review, err = s.Reviews.CreateTx(tx, rin)
		return err
	})
	if err != nil {
		return nil, wrap(err)
	}
	metrics.RecordChoreTransition(status)

	if chore, err = s.load(db, choreID); err != nil {
		return nil, err
	}
	worker, err := s.loadUser(db, workerID)
	if err != nil {
		return nil, err
	}
	return &StatusResult{Chore: chore, Worker: worker, Review: review}, nil
}

// UpdateInput is the set of chore fields an owner may change. Nil fields are
// left untouched.
type UpdateInput struct {
	Title       *string `json:"title"`
	Category    *string `json:"category"`
	Date        *string `json:"date"`
	Description *string `json:"description"`
	StartTime   *string `json:"startTime"`
	EndTime     *string `json:"endTime"`
}

func (in UpdateInput) columns() (map[string]interface{}, utils.FieldErrors) {
	cols := map[string]interface{}{}
	fields := utils.FieldErrors{}
	set := func(column, field string, v *string, required bool) {
		if v == nil {
			return
		}
		val := strings.TrimSpace(*v)
		if required && val == "" {
			fields.Add(field, field+" cannot be empty")
			return
		}
		cols[column] = val
	}
	set("title", "title", in.Title, true)
	set("category", "category", in.Category, false)
	set("date", "date", in.Date, true)
	set("description", "description", in.Description, true)
	set("start_time", "startTime", in.StartTime, true)
	set("end_time", "endTime", in.EndTime, true)
	return cols, fields
}

// Update applies a partial update. Any invalid field rejects the whole update.
func (s *ChoresService) Update(ctx context.Context, choreID, ownerID uuid.UUID, in UpdateInput) (*models.Chore, error) {
	cols, fields := in.columns()
	if len(fields) > 0 {
		return nil, utils.ValidationError("Invalid updates", fields)
	}
	if len(cols) == 0 {
		return nil, utils.ValidationError("Invalid updates", nil)
	}

	db := s.DB.WithContext(ctx)
	chore, err := s.load(db, choreID)
	if err != nil {
		return nil, err
	}
	if chore.CreatorID != ownerID {
		return nil, utils.ForbiddenError("Only the chore owner can update this chore")
	}
	if err := db.Model(&models.Chore{}).Where("id = ?", choreID).Updates(cols).Error; err != nil {
		return nil, utils.InternalError(err)
	}
	return s.load(db, choreID)
}

// Delete removes the chore and its applicants. Workers' chore entries keep
// pointing at the deleted id.
func (s *ChoresService) Delete(ctx context.Context, choreID, ownerID uuid.UUID) error {
	db := s.DB.WithContext(ctx)
	var chore models.Chore
	if err := db.First(&chore, "id = ?", choreID).Error; err != nil {
		return utils.NotFoundOr(err, "Chore not found")
	}
	if chore.CreatorID != ownerID {
		return utils.ForbiddenError("Only the chore owner can delete this chore")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chore_id = ?", choreID).Delete(&models.Applicant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Chore{}, "id = ?", choreID).Error
	})
	if err != nil {
		return utils.InternalError(err)
	}
	metrics.RecordChoreTransition(metrics.TransitionDeleted)
	return nil
}

type PaidResult struct {
	Chore  *models.Chore
	Worker *models.User
}

// MarkPaid flags a completed chore and the worker's entries for it as paid.
func (s *ChoresService) MarkPaid(ctx context.Context, choreID, ownerID, workerID uuid.UUID) (*PaidResult, error) {
	db := s.DB.WithContext(ctx)
	chore, err := s.load(db, choreID)
	if err != nil {
		return nil, err
	}
	if chore.CreatorID != ownerID {
		return nil, utils.ForbiddenError("Only the chore owner can mark a chore paid")
	}
	if !chore.Completed {
		return nil, utils.ValidationError("Chore is not completed", nil)
	}

	var accepted int64
	if err := db.Model(&models.Applicant{}).
		Where("chore_id = ? AND applicant_id = ? AND chore_accepted = ?", choreID, workerID, true).
		Count(&accepted).Error; err != nil {
		return nil, utils.InternalError(err)
	}
	if accepted == 0 {
		return nil, utils.ValidationError("Worker is not the accepted applicant for this chore", nil)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Chore{}).Where("id = ?", choreID).Update("paid", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.UserChore{}).
			Where("user_id = ? AND chore_id = ?", workerID, choreID).
			Update("paid", true).Error
	})
	if err != nil {
		return nil, utils.InternalError(err)
	}
	metrics.RecordChoreTransition(metrics.TransitionPaid)

	if chore, err = s.load(db, choreID); err != nil {
		return nil, err
	}
	worker, err := s.loadUser(db, workerID)
	if err != nil {
		return nil, err
	}
	return &PaidResult{Chore: chore, Worker: worker}, nil
}

// wrap keeps AppErrors raised inside a transaction and hides everything else.
func wrap(err error) error {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return utils.InternalError(err)
}
