package domain

import (
	"context"

	"taskbot/internal/domain/models"
)

// Outbound is content handed to the transport for rendering.
type Outbound struct {
	Text      string
	ReplyTo   int // message id to reply to, 0 for none
	Keyboard  *models.Keyboard
	Silent    bool // suppress the client-side notification
	Formatted bool // text carries HTML formatting
}

// Transport delivers, edits and retracts chat messages. Delete tolerates
// already-deleted targets by returning ErrNotFound, which callers may
// ignore.
type Transport interface {
	Send(ctx context.Context, chatID int64, out Outbound) (models.Artifact, error)
	SendAlbum(ctx context.Context, chatID int64, items []models.ContentItem) ([]models.Artifact, error)
	Edit(ctx context.Context, art models.Artifact, out Outbound) error
	EditKeyboard(ctx context.Context, art models.Artifact, kb *models.Keyboard) error
	Delete(ctx context.Context, art models.Artifact) error
}

// SessionRepository holds per-conversation draft state. Get creates an
// idle session lazily. Update applies an atomic read-modify-write under a
// per-conversation lock; mutations for different conversations proceed
// concurrently. Reset restores the idle state and bumps the epoch.
type SessionRepository interface {
	Get(conversationID int64) models.Session
	Update(conversationID int64, fn func(*models.Session) error) (models.Session, error)
	Reset(conversationID int64) models.Session
}

// TaskStore is the slice of the task-management backend the submission
// path depends on: one draft-creation call, then one registration call
// per attachment.
type TaskStore interface {
	CreateTask(ctx context.Context, text string, createdBy, groupID int64) (int64, error)
	AddAttachment(ctx context.Context, taskID int64, item models.ContentItem) error
}

// Classifier resolves which role a Telegram user holds. Lookup failures
// degrade to an unknown, unauthenticated user rather than an error.
type Classifier interface {
	Classify(ctx context.Context, userID int64) models.User
}
