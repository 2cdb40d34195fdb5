package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/realtime"
	"github.com/choreista/platform_be_chores/internal/utils"
)

const matchTemplate = "It’s a chore match! You have been matched for the chore of %s by %s. Start the conversation to agree on the chore date, duration, and pay."

// MatchMessage is the system message that opens a thread after an acceptance.
func MatchMessage(choreTitle, ownerName string) string {
	return fmt.Sprintf(matchTemplate, choreTitle, ownerName)
}

type MessagingService struct {
	DB       *gorm.DB
	Notifier realtime.Notifier
}

func NewMessagingService(db *gorm.DB, n realtime.Notifier) *MessagingService {
	if n == nil {
		n = realtime.Nop{}
	}
	return &MessagingService{DB: db, Notifier: n}
}

// OnAccept opens (or reuses) the thread between owner and applicant and posts
// the match message to it. It must be called inside the accept transaction.
func (s *MessagingService) OnAccept(tx *gorm.DB, choreID, ownerID, applicantID uuid.UUID, ownerName, choreTitle string) (*models.Thread, error) {
	var thread models.Thread
	err := tx.Where("pair_key = ?", models.PairKey(ownerID, applicantID)).First(&thread).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		thread = models.Thread{
			SenderID:   ownerID,
			ReceiverID: applicantID,
			ChoreID:    &choreID,
		}
		if err := tx.Create(&thread).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	msg := models.ThreadMessage{
		ThreadID:  thread.ID,
		FromOwner: true,
		Message:   MatchMessage(choreTitle, ownerName),
	}
	if err := tx.Create(&msg).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&thread).Update("chore_id", choreID).Error; err != nil {
		return nil, err
	}
	thread.ChoreID = &choreID
	thread.Messages = append(thread.Messages, msg)
	return &thread, nil
}

// NotifyMatch tells both sides of a freshly matched thread. Call after commit.
func (s *MessagingService) NotifyMatch(ctx context.Context, thread *models.Thread) {
	evt := realtime.Event{Type: realtime.EventChoreMatch, Data: thread}
	s.Notifier.Notify(ctx, thread.SenderID, evt)
	s.Notifier.Notify(ctx, thread.ReceiverID, evt)
}

func withConversation(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Sender").
		Preload("Receiver").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

// ListThreads returns the threads an owner started or a worker was matched
// into, newest activity first.
func (s *MessagingService) ListThreads(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.Thread, error) {
	column := "receiver_id"
	if role == models.RoleChoreOwner {
		column = "sender_id"
	}

	var threads []models.Thread
	err := withConversation(s.DB.WithContext(ctx)).
		Where(column+" = ?", userID).
		Order("updated_at DESC").
		Find(&threads).Error
	if err != nil {
		return nil, utils.InternalError(err)
	}
	return threads, nil
}

func (s *MessagingService) GetThread(ctx context.Context, threadID, userID uuid.UUID) (*models.Thread, error) {
	var thread models.Thread
	if err := withConversation(s.DB.WithContext(ctx)).First(&thread, "id = ?", threadID).Error; err != nil {
		return nil, utils.NotFoundOr(err, "Conversation not found")
	}
	if !thread.Participant(userID) {
		return nil, utils.ForbiddenError("Not a participant of this conversation")
	}
	return &thread, nil
}

// PostMessage appends text to the thread. fromOwner is derived from the author.
func (s *MessagingService) PostMessage(ctx context.Context, threadID, authorID uuid.UUID, text string) (*models.ThreadMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, utils.ValidationError("Validation error", utils.FieldErrors{"message": {"message is required"}})
	}

	db := s.DB.WithContext(ctx)
	var thread models.Thread
	if err := db.First(&thread, "id = ?", threadID).Error; err != nil {
		return nil, utils.NotFoundOr(err, "Conversation not found")
	}
	if !thread.Participant(authorID) {
		return nil, utils.ForbiddenError("Not a participant of this conversation")
	}

	msg := models.ThreadMessage{
		ThreadID:  thread.ID,
		FromOwner: authorID == thread.SenderID,
		Message:   text,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&thread).Update("updated_at", time.Now().UTC()).Error
	})
	if err != nil {
		return nil, utils.InternalError(err)
	}

	evt := realtime.Event{Type: realtime.EventNewMessage, Data: msg}
	s.Notifier.Notify(ctx, thread.SenderID, evt)
	s.Notifier.Notify(ctx, thread.ReceiverID, evt)
	return &msg, nil
}

// MarkRead stamps the thread's read time.
func (s *MessagingService) MarkRead(ctx context.Context, threadID, userID uuid.UUID) (*models.Thread, error) {
	db := s.DB.WithContext(ctx)
	var thread models.Thread
	if err := db.First(&thread, "id = ?", threadID).Error; err != nil {
		return nil, utils.NotFoundOr(err, "Conversation not found")
	}
	if !thread.Participant(userID) {
		return nil, utils.ForbiddenError("Not a participant of this conversation")
	}

	now := time.Now().UTC()
	if err := db.Model(&thread).Update("read", now).Error; err != nil {
		return nil, utils.InternalError(err)
	}
	thread.Read = &now
	return &thread, nil
}
