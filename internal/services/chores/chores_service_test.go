package chores

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/choreista/platform_be_chores/internal/db/dbtest"
	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/services/messaging"
	"github.com/choreista/platform_be_chores/internal/services/reviews"
	"github.com/choreista/platform_be_chores/internal/utils"
)

type fixture struct {
	svc    *ChoresService
	db     *gorm.DB
	owner  *models.User
	worker *models.User
	other  *models.User
}

func newFixture(t *testing.T, policy TrackingPolicy) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{
		svc: NewChoresService(db, messaging.NewMessagingService(db, nil), reviews.NewReviewsService(db), policy),
		db:  db,
	}
	f.owner = f.user(t, "owner@example.com", models.RoleChoreOwner)
	f.worker = f.user(t, "worker@example.com", models.RoleWorker)
	f.other = f.user(t, "other@example.com", models.RoleWorker)
	return f
}

func (f *fixture) user(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{FirstName: "Pat", LastName: "Doe", Email: email, Password: "x", Role: role}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) chore(t *testing.T, title, category string) *models.Chore {
	t.Helper()
	c, err := f.svc.Create(context.Background(), f.owner.ID, CreateInput{
		Title:       title,
		Description: "details",
		Category:    category,
		Date:        "2024-06-01",
		StartTime:   "09:00",
		EndTime:     "11:00",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) entries(t *testing.T, userID, choreID uuid.UUID) []models.UserChore {
	t.Helper()
	var out []models.UserChore
	require.NoError(t, f.db.Where("user_id = ? AND chore_id = ?", userID, choreID).Find(&out).Error)
	return out
}

func (f *fixture) matched(t *testing.T, title string) *models.Chore {
	t.Helper()
	ctx := context.Background()
	c := f.chore(t, title, "yard")
	_, err := f.svc.Apply(ctx, c.ID, f.worker.ID, "pick me")
	require.NoError(t, err)
	_, err = f.svc.AcceptApplicant(ctx, c.ID, f.owner.ID, f.worker.ID)
	require.NoError(t, err)
	return c
}

func TestCreate(t *testing.T) {
	f := newFixture(t, TrackLegacy)
	c := f.chore(t, "  Mow lawn ", "yard")
	assert.Equal(t, "Mow lawn", c.Title)
	assert.Equal(t, f.owner.ID, c.CreatorID)
	require.NotNil(t, c.Creator)
	assert.Equal(t, f.owner.Email, c.Creator.Email)
	assert.False(t, c.AcceptedApplicant)
	assert.Empty(t, c.Applicants)

	_, err := f.svc.Create(context.Background(), f.owner.ID, CreateInput{Title: "No times", Description: "x", Date: "2024-06-01"})
	require.True(t, utils.IsKind(err, utils.ErrCodeValidation))
	fields := utils.AsAppError(err).Fields
	assert.Contains(t, fields, "startTime")
	assert.Contains(t, fields, "endTime")
}

func TestListing(t *testing.T) {
	f := newFixture(t, TrackLegacy)
	ctx := context.Background()
	f.chore(t, "Mow lawn", "yard")
	f.chore(t, "Rake leaves", "yard")
	f.chore(t, "Dishes", "kitchen")

	other, err := f.svc.Create(ctx, f.other.ID, CreateInput{Title: "Weed", Description: "x", Category: "yard", Date: "d", StartTime: "s", EndTime: "e"})
	require.NoError(t, err)

	mine, err := f.svc.ListByOwnerAndCategory(ctx, f.owner.ID, "yard")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := f.svc.ListByCategory(ctx, "yard")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Contains(t, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID}, other.ID)

	none, err := f.svc.ListByCategory(ctx, "Yard")
	require.NoError(t, err)
	assert.Empty(t, none, "category match is exact")

	_, err = f.svc.ListByCategory(ctx, " ")
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))
	_, err = f.svc.ListByOwnerAndCategory(ctx, f.owner.ID, "")
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))

	everything, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, everything, 4)

	cats, err := f.svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kitchen", "yard"}, cats)
}

func TestSearch(t *testing.T) {
	f := newFixture(t, TrackLegacy)
	ctx := context.Background()
	f.chore(t, "Mow the LAWN", "yard")
	f.chore(t, "Clean 100% of garage", "home")
	f.chore(t, "Walk dog (big)", "pets")

	got, err := f.svc.Search(ctx, "lawn")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mow the LAWN", got[0].Title)

	got, err = f.svc.Search(ctx, "100%")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.svc.Search(ctx, "%")
	require.NoError(t, err)
	assert.Len(t, got, 1, "percent is literal")

	got, err = f.svc.Search(ctx, "(big)")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.svc.Search(ctx, "_")
	require.NoError(t, err)
	assert.Empty(t, got, "underscore is literal")

	_, err = f.svc.Search(ctx, "  ")
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))
}

func TestApplyIsIdempotent(t *testing.T) {
	f := newFixture(t, TrackLegacy)
	ctx := context.Background()
	c := f.chore(t, "Mow lawn", "yard")

	res, err := f.svc.Apply(ctx, c.ID, f.worker.ID, "I can do it")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	require.Len(t, res.Chore.Applicants, 1)
	assert.Equal(t, f.worker.ID, res.Chore.Applicants[0].ApplicantID)
	assert.Equal(t, "I can do it", res.Chore.Applicants[0].Message)
	require.Len(t, res.Applicant.Chores, 1)
	assert.Equal(t, c.ID, res.Applicant.Chores[0].ChoreID)

	res, err = f.svc.Apply(ctx, c.ID, f.worker.ID, "again")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Len(t, res.Chore.Applicants, 1)
	assert.Len(t, res.Applicant.Chores, 1)

	_, err = f.svc.Apply(ctx, uuid.New(), f.worker.ID, "")
	assert.True(t, utils.IsKind(err, utils.ErrCodeNotFound))

	_, err = f.svc.Apply(ctx, c.ID, f.owner.ID, "")
	assert.True(t, utils.IsKind(err, utils.ErrCodeForbidden))
}

func TestAcceptApplicant(t *testing.T) {
	f := newFixture(t, TrackLegacy)
	ctx := context.Background()
	c := f.chore(t, "Mow lawn", "yard")
	_, err := f.svc.Apply(ctx, c.ID, f.worker.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, c.ID, f.other.ID, "")
	require.NoError(t, err)

	_, err = f.svc.AcceptApplicant(ctx, c.ID, f.other.ID, f.worker.ID)
	assert.True(t, utils.IsKind(err, utils.ErrCodeForbidden))

	_, err = f.svc.AcceptApplicant(ctx, c.ID, f.owner.ID, uuid.New())
	assert.True(t, utils.IsKind(err, utils.ErrCodeNotFound))

	res, err := f.svc.AcceptApplicant(ctx, c.ID, f.owner.ID, f.worker.ID)
	require.NoError(t, err)
	assert.True(t, res.Chore.AcceptedApplicant)
	for _, a := range res.Chore.Applicants {
		assert.Equal(t, a.ApplicantID == f.worker.ID, a.ChoreAccepted)
	}
	require.NotNil(t, res.Thread)
	assert.Equal(t, f.owner.ID, res.Thread.SenderID)
	assert.Equal(t, f.worker.ID, res.Thread.ReceiverID)
	assert.Equal(t, messaging.MatchMessage("Mow lawn", "Pat Doe"), res.Thread.Messages[0].Message)

	var threads int64
	require.NoError(t, f.db.Model(&models.Thread{}).Count(&threads).Error)
	assert.EqualValues(t, 1, threads)

	// legacy tracking: one entry at apply, one at accept
	assert.Len(t, f.entries(t, f.worker.ID, c.ID), 2)

	_, err = f.svc.AcceptApplicant(ctx, c.ID, f.owner.ID, f.other.ID)
	assert.True(t, utils.IsKind(err, utils.ErrCodeConflict))

	// accepting the same applicant again changes nothing
	_, err = f.svc.AcceptApplicant(ctx, c.ID, f.owner.ID, f.worker.ID)
	require.NoError(t, err)
	assert.Len(t, f.entries(t, f.worker.ID, c.ID), 2)

	late := f.user(t, "late@example.com", models.RoleWorker)
	_, err = f.svc.Apply(ctx, c.ID, late.ID, "")
	assert.True(t, utils.IsKind(err, utils.ErrCodeConflict))
}

func TestAcceptDedupePolicy(t *testing.T) {
	f := newFixture(t, TrackDedupe)
	c := f.matched(t, "Mow lawn")
	assert.Len(t, f.entries(t, f.worker.ID, c.ID), 1)
}

func TestParseTrackingPolicy(t *testing.T) {
	assert.Equal(t, TrackDedupe, ParseTrackingPolicy(" Dedupe "))
	assert.Equal(t, TrackLegacy, ParseTrackingPolicy("legacy"))
	assert.Equal(t, TrackLegacy, ParseTrackingPolicy("whatever"))
}

func TestUpdateStatusLifecycle(t *testing.T) {
	f := newFixture(t, TrackLegacy)
	ctx := context.Background()
	c := f.matched(t, "Mow lawn")

	_, err := f.svc.UpdateStatus(ctx, c.ID, f.owner.ID, f.worker.ID, StatusInput{Status: "paused"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))

	_, err = f.svc.UpdateStatus(ctx, c.ID, f.owner.ID, f.other.ID, StatusInput{Status: "started"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation), "other never got accepted")

	_, err = f.svc.UpdateStatus(ctx, c.ID, f.other.ID, f.worker.ID, StatusInput{Status: "started"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeForbidden))

	started, err := f.svc.UpdateStatus(ctx, c.ID, f.owner.ID, f.worker.ID, StatusInput{Status: "started"})
	require.NoError(t, err)
	assert.True(t, started.Chore.Progress.Status)
	assert.Equal(t, "started", started.Chore.Progress.Message)
	assert.False(t, started.Chore.Completed)
	assert.Nil(t, started.Review)
	for _, e := range f.entries(t, f.worker.ID, c.ID) {
		assert.True(t, e.ChoreStarted)
		assert.False(t, e.ChoreCompleted)
	}

	done, err := f.svc.UpdateStatus(ctx, c.ID, f.owner.ID, f.worker.ID, StatusInput{
		Status:        "completed",
		CompletedTime: "11:30",
		TotalHours:    2.5,
		PayRate:       15,
		Review:        &ReviewInput{Stars: 5, Comment: "Great job"},
	})
	require.NoError(t, err)
	assert.True(t, done.Chore.Completed)
	assert.Equal(t, "completed", done.Chore.Progress.Message)
	assert.Equal(t, "11:30", done.Chore.CompletedTime)
	assert.Equal(t, 2.5, done.Chore.TotalHours)
	assert.Equal(t, 15.0, done.Chore.PayRate)
	assert.NotNil(t, done.Chore.CompletedDate)

	require.NotNil(t, done.Review)
	assert.Equal(t, f.owner.ID, done.Review.ReviewerID)
	assert.Equal(t, f.worker.ID, done.Review.ReviewedID)
	assert.Equal(t, c.ID, done.Review.ChoreID)
	assert.Equal(t, "11:30", done.Review.CompletedTime)

	require.NotEmpty(t, done.Worker.Chores)
	for _, e := range done.Worker.Chores {
		assert.True(t, e.ChoreCompleted)
	}

	_, err = f.svc.UpdateStatus(ctx, c.ID, f.owner.ID, f.worker.ID, StatusInput{Status: "started"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeConflict), "no transition back from completed")
}

func TestUpdateStatusReviewParties(t *testing.T) {
	f := newFixture(t, TrackLegacy)
	ctx := context.Background()
	c := f.matched(t, "Mow lawn")

	_, err := f.svc.UpdateStatus(ctx, c.ID, f.worker.ID, f.worker.ID, StatusInput{
		Status: "completed",
		Review: &ReviewInput{Reviewer: &f.other.ID, Reviewed: &f.other.ID, Stars: 1},
	})
	assert.True(t, utils.IsKind(err, utils.ErrCodeForbidden), "reviewer must be the caller")

	_, err = f.svc.UpdateStatus(ctx, c.ID, f.worker.ID, f.worker.ID, StatusInput{
		Status: "completed",
		Review: &ReviewInput{Reviewer: &f.worker.ID, Reviewed: &f.other.ID, Stars: 1},
	})
	assert.True(t, utils.IsKind(err, utils.ErrCodeForbidden), "reviewed must be the chore owner")

	var n int64
	require.NoError(t, f.db.Model(&models.Review{}).Count(&n).Error)
	assert.Zero(t, n)
	var stored models.Chore
	require.NoError(t, f.db.First(&stored, "id = ?", c.ID).Error)
	assert.False(t, stored.Completed, "rejected review leaves the chore untouched")

	done, err := f.svc.UpdateStatus(ctx, c.ID, f.worker.ID, f.worker.ID, StatusInput{
		Status: "completed",
		Review: &ReviewInput{Reviewer: &f.worker.ID, Stars: 4},
	})
	require.NoError(t, err)
	require.NotNil(t, done.Review)
	assert.Equal(t, f.worker.ID, done.Review.ReviewerID)
	assert.Equal(t, f.owner.ID, done.Review.ReviewedID)
}

func TestUpdateStatusRequiresAcceptance(t *testing.T) {
	f := newFixture(t, TrackLegacy)
	ctx := context.Background()
	c := f.chore(t, "Mow lawn", "yard")
	_, err := f.svc.Apply(ctx, c.ID, f.worker.ID, "")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, c.ID, f.owner.ID, f.worker.ID, StatusInput{Status: "started"})
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, TrackLegacy)
	ctx := context.Background()
	c := f.chore(t, "Mow lawn", "yard")

	title, empty := "Mow front lawn", ""
	_, err := f.svc.Update(ctx, c.ID, f.owner.ID, UpdateInput{Title: &title, Description: &empty})
	require.True(t, utils.IsKind(err, utils.ErrCodeValidation))
	unchanged, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mow lawn", unchanged.Title, "nothing applied when any field fails")

	_, err = f.svc.Update(ctx, c.ID, f.owner.ID, UpdateInput{})
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation))

	_, err = f.svc.Update(ctx, c.ID, f.worker.ID, UpdateInput{Title: &title})
	assert.True(t, utils.IsKind(err, utils.ErrCodeForbidden))

	cat := "garden"
	got, err := f.svc.Update(ctx, c.ID, f.owner.ID, UpdateInput{Title: &title, Category: &cat})
	require.NoError(t, err)
	assert.Equal(t, "Mow front lawn", got.Title)
	assert.Equal(t, "garden", got.Category)
	assert.Equal(t, "details", got.Description)
}

func TestUpdateRejectsUnknownKeys(t *testing.T) {
	var in UpdateInput
	err := utils.DecodeStrict([]byte(`{"title":"x","completed":true}`), &in)
	require.True(t, utils.IsKind(err, utils.ErrCodeValidation))
	assert.Contains(t, utils.AsAppError(err).Fields, "completed")
}

func TestDelete(t *testing.T) {
	f := newFixture(t, TrackLegacy)
	ctx := context.Background()
	c := f.chore(t, "Mow lawn", "yard")
	_, err := f.svc.Apply(ctx, c.ID, f.worker.ID, "")
	require.NoError(t, err)

	assert.True(t, utils.IsKind(f.svc.Delete(ctx, c.ID, f.worker.ID), utils.ErrCodeForbidden))
	require.NoError(t, f.svc.Delete(ctx, c.ID, f.owner.ID))

	_, err = f.svc.Get(ctx, c.ID)
	assert.True(t, utils.IsKind(err, utils.ErrCodeNotFound))

	var applicants int64
	require.NoError(t, f.db.Model(&models.Applicant{}).Where("chore_id = ?", c.ID).Count(&applicants).Error)
	assert.EqualValues(t, 0, applicants)

	// worker entries are not cascaded
	assert.Len(t, f.entries(t, f.worker.ID, c.ID), 1)

	assert.True(t, utils.IsKind(f.svc.Delete(ctx, c.ID, f.owner.ID), utils.ErrCodeNotFound))
}

func TestMarkPaid(t *testing.T) {
	f := newFixture(t, TrackLegacy)
	ctx := context.Background()
	c := f.matched(t, "Mow lawn")

	_, err := f.svc.MarkPaid(ctx, c.ID, f.owner.ID, f.worker.ID)
	assert.True(t, utils.IsKind(err, utils.ErrCodeValidation), "not completed yet")

	_, err = f.svc.UpdateStatus(ctx, c.ID, f.owner.ID, f.worker.ID, StatusInput{Status: "completed"})
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(ctx, c.ID, f.worker.ID, f.worker.ID)
	assert.True(t, utils.IsKind(err, utils.ErrCodeForbidden))

	res, err := f.svc.MarkPaid(ctx, c.ID, f.owner.ID, f.worker.ID)
	require.NoError(t, err)
	assert.True(t, res.Chore.Paid)
	for _, e := range res.Worker.Chores {
		assert.True(t, e.Paid)
	}
}
