package conversation

import (
	"context"
	"log/slog"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
)

// SubmissionCoordinator commits a finished draft to the task store: one
// draft-creation call, then one registration call per attachment.
//
// The coordinator does not deduplicate repeated commits; exclusivity is
// enforced entirely by the Submitting phase guard in the controller.
type SubmissionCoordinator struct {
	store  domain.TaskStore
	logger *slog.Logger
}

func NewSubmissionCoordinator(store domain.TaskStore, logger *slog.Logger) *SubmissionCoordinator {
	return &SubmissionCoordinator{store: store, logger: logger}
}

// CommitResult reports the committed task and any attachments that failed
// to register after the draft was created.
type CommitResult struct {
	TaskID            int64
	FailedAttachments int
}

// Commit creates the draft record, then fans the attachments out as
// follow-up writes. A failed draft creation is a CommitError and nothing
// is written. A failed attachment after that point is logged and counted
// but does not roll back the draft: the store is the source of truth and
// reconciliation is a backend concern.
func (c *SubmissionCoordinator) Commit(ctx context.Context, sess models.Session, target, submittedBy int64) (CommitResult, error) {
	taskID, err := c.store.CreateTask(ctx, sess.DraftText, submittedBy, target)
	if err != nil {
		return CommitResult{}, &domain.CommitError{Message: "create task", Err: err}
	}

	result := CommitResult{TaskID: taskID}
	for _, item := range sess.Items {
		if err := c.store.AddAttachment(ctx, taskID, item); err != nil {
			aerr := &domain.AttachmentError{ContentRef: item.ContentRef, Err: err}
			c.logger.Warn("attachment registration failed",
				"task_id", taskID,
				"conversation_id", sess.ConversationID,
				"error", aerr,
			)
			result.FailedAttachments++
		}
	}

	c.logger.Info("draft committed",
		"task_id", taskID,
		"conversation_id", sess.ConversationID,
		"attachments", len(sess.Items),
		"failed_attachments", result.FailedAttachments,
	)
	return result, nil
}
