// Package conversation implements the per-conversation state machine
// that turns a burst of inbound messages into one committed task:
// intake -> review -> submit/cancel.
package conversation

import (
	"context"
	"errors"
	"log/slog"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
	"taskbot/internal/render"
	"taskbot/internal/service/intake"
	"taskbot/internal/templates"
)

// errStaleBatch marks a batch flush that raced with a session reset.
var errStaleBatch = errors.New("stale batch")

// errStaleSubmit marks a submit epilogue that raced with a session reset.
var errStaleSubmit = errors.New("stale submit")

// Intake carries one inbound content event into the state machine.
type Intake struct {
	ConversationID int64

	// Origin is the inbound message itself; it is tracked for retraction
	// alongside the status artifacts the bot renders. Zero value: none.
	Origin models.Artifact

	Text  string
	Items []models.ContentItem

	// Epoch guards batch flushes: when CheckEpoch is set and the session
	// epoch moved on (cancel/submit since ingest), the event is dropped.
	Epoch      int64
	CheckEpoch bool
}

// Controller orchestrates the draft lifecycle for every conversation.
// All session mutations run through the repository's per-conversation
// lock; the Submitting phase doubles as the commit mutex.
type Controller struct {
	sessions  domain.SessionRepository
	transport domain.Transport
	tracker   *ArtifactTracker
	submitter *SubmissionCoordinator
	messages  *templates.Registry
	logger    *slog.Logger
}

func NewController(
	sessions domain.SessionRepository,
	transport domain.Transport,
	tracker *ArtifactTracker,
	submitter *SubmissionCoordinator,
	messages *templates.Registry,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		sessions:  sessions,
		transport: transport,
		tracker:   tracker,
		submitter: submitter,
		messages:  messages,
		logger:    logger,
	}
}

// CurrentEpoch returns the conversation's session epoch, stamped onto
// batches at ingest so late flushes can be detected.
func (c *Controller) CurrentEpoch(conversationID int64) int64 {
	return c.sessions.Get(conversationID).Epoch
}

// TrackOrigin registers an inbound message for later retraction without
// mutating the draft. Used for media-group members, whose content reaches
// the draft through the aggregator instead.
func (c *Controller) TrackOrigin(conversationID int64, art models.Artifact) {
	c.tracker.Record(conversationID, art)
}

// ShowStatus re-renders the collecting summary on demand, e.g. when the
// user navigates back to the draft menu.
func (c *Controller) ShowStatus(ctx context.Context, conversationID int64) {
	c.renderStatus(ctx, c.sessions.Get(conversationID), 0)
}

// Ingest merges one inbound event into the draft and re-renders the
// status view. Text (or a caption) overwrites the draft text; items are
// deduplicated by content ref.
func (c *Controller) Ingest(ctx context.Context, in Intake) error {
	if in.Origin != (models.Artifact{}) {
		c.tracker.Record(in.ConversationID, in.Origin)
	}

	var duplicates int
	sess, err := c.sessions.Update(in.ConversationID, func(s *models.Session) error {
		if in.CheckEpoch && s.Epoch != in.Epoch {
			return errStaleBatch
		}
		if s.Phase == models.PhaseSubmitting {
			return domain.ErrSubmitInFlight
		}
		if s.Phase == models.PhaseIdle || s.Phase == models.PhaseReviewing {
			s.Phase = models.PhaseCollecting
		}
		if len(in.Items) > 0 {
			s.Items, duplicates = intake.Merge(s.Items, in.Items)
		}
		if in.Text != "" {
			s.DraftText = in.Text
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.renderStatus(ctx, sess, duplicates)
	return nil
}

// ApplyBatch feeds a completed aggregator batch into the draft. Flushes
// that lost the race against a cancel or submit are silently discarded.
func (c *Controller) ApplyBatch(ctx context.Context, batch models.Batch) error {
	err := c.Ingest(ctx, Intake{
		ConversationID: batch.ConversationID,
		Text:           batch.Caption,
		Items:          batch.Items,
		Epoch:          batch.Epoch,
		CheckEpoch:     true,
	})
	if errors.Is(err, errStaleBatch) {
		c.logger.Info("discarding batch flushed after session reset",
			"batch_id", batch.ID,
			"conversation_id", batch.ConversationID,
		)
		return nil
	}
	return err
}

// Review retracts the collection chatter and renders the full draft
// preview. Reviewing is only reachable once the draft has text.
func (c *Controller) Review(ctx context.Context, conversationID int64) error {
	sess, err := c.sessions.Update(conversationID, func(s *models.Session) error {
		if s.Phase == models.PhaseSubmitting {
			return domain.ErrSubmitInFlight
		}
		if s.DraftText == "" {
			return &domain.ValidationError{Message: "draft has no text"}
		}
		s.Phase = models.PhaseReviewing
		return nil
	})
	if err != nil {
		return err
	}

	c.tracker.DrainAndRetract(ctx, conversationID)
	arts, err := c.renderDraft(ctx, conversationID, sess, true)
	if err != nil {
		c.logger.Warn("draft preview render failed",
			"conversation_id", conversationID,
			"error", err,
		)
	}
	c.tracker.Record(conversationID, arts...)
	return nil
}

// Cancel resets the session to idle and retracts every tracked artifact.
// The drain and the reset happen inside the guarded update: a submit
// racing against the cancel either takes the Submitting phase first and
// forces the cancel to be rejected, or finds the draft already gone.
func (c *Controller) Cancel(ctx context.Context, conversationID int64) error {
	var drained []models.Artifact
	if _, err := c.sessions.Update(conversationID, func(s *models.Session) error {
		if s.Phase == models.PhaseSubmitting {
			return domain.ErrSubmitInFlight
		}
		drained = s.Retractable
		*s = models.Session{
			ConversationID: conversationID,
			Phase:          models.PhaseIdle,
			Epoch:          s.Epoch + 1,
		}
		return nil
	}); err != nil {
		return err
	}

	c.tracker.Retract(ctx, conversationID, drained)
	return nil
}

// Submit commits the draft to the task store exactly once and publishes
// the final task into the target chat. Submitting is only reachable from
// Reviewing. On commit failure the session returns to Reviewing with its
// content intact so submit can be retried.
func (c *Controller) Submit(ctx context.Context, conversationID, target, submittedBy int64) (CommitResult, error) {
	sess, err := c.sessions.Update(conversationID, func(s *models.Session) error {
		if s.Phase == models.PhaseSubmitting {
			return domain.ErrSubmitInFlight
		}
		if s.Phase != models.PhaseReviewing {
			return &domain.ValidationError{Message: "draft is not under review"}
		}
		if s.DraftText == "" {
			return &domain.ValidationError{Message: "draft has no text"}
		}
		s.Phase = models.PhaseSubmitting
		return nil
	})
	if err != nil {
		return CommitResult{}, err
	}

	// Collection chatter goes away before anything durable happens.
	c.tracker.DrainAndRetract(ctx, conversationID)

	result, err := c.submitter.Commit(ctx, sess, target, submittedBy)
	if err != nil {
		c.epilogue(conversationID, sess.Epoch, func(s *models.Session) {
			s.Phase = models.PhaseReviewing
		})
		return CommitResult{}, err
	}

	sess.DraftID = result.TaskID
	if _, rerr := c.renderDraft(ctx, target, sess, false); rerr != nil {
		c.logger.Warn("final task render failed",
			"task_id", result.TaskID,
			"target", target,
			"error", rerr,
		)
	}

	c.epilogue(conversationID, sess.Epoch, func(s *models.Session) {
		*s = models.Session{
			ConversationID: conversationID,
			Phase:          models.PhaseIdle,
			Epoch:          s.Epoch + 1,
		}
	})
	return result, nil
}

// epilogue finishes a submit, but only if the session is still the one
// the submit locked: a reset that slipped in while the commit was on the
// network owns the state now, and a stale epilogue must not destroy the
// draft the user started since.
func (c *Controller) epilogue(conversationID int64, epoch int64, apply func(*models.Session)) {
	_, err := c.sessions.Update(conversationID, func(s *models.Session) error {
		if s.Phase != models.PhaseSubmitting || s.Epoch != epoch {
			return errStaleSubmit
		}
		apply(s)
		return nil
	})
	if errors.Is(err, errStaleSubmit) {
		c.logger.Info("submit epilogue skipped, session was reset during commit",
			"conversation_id", conversationID,
			"epoch", epoch,
		)
	}
}

// renderStatus sends the collecting summary into the conversation and
// tracks it for retraction. Status rendering is non-critical: transport
// failures are logged and swallowed.
func (c *Controller) renderStatus(ctx context.Context, sess models.Session, duplicates int) {
	out := domain.Outbound{
		Text:      render.StatusText(c.messages, sess, duplicates),
		Formatted: true,
	}
	if sess.DraftText != "" {
		out.Keyboard = render.CreatorMenu()
	}

	art, err := c.transport.Send(ctx, sess.ConversationID, out)
	if err != nil {
		c.logger.Warn("status render failed",
			"conversation_id", sess.ConversationID,
			"error", err,
		)
		return
	}
	c.tracker.Record(sess.ConversationID, art)
}

// renderDraft renders the assembled draft into chatID: a task number
// line, the attachments as media groups (photos and videos first, then
// documents), and the draft text. Preview renders carry the creator menu;
// the final render carries the take-task keyboard.
func (c *Controller) renderDraft(ctx context.Context, chatID int64, sess models.Session, preview bool) ([]models.Artifact, error) {
	var arts []models.Artifact

	numberText := render.TaskNumberText(c.messages, sess.DraftID)
	numberArt, err := c.transport.Send(ctx, chatID, domain.Outbound{Text: numberText})
	if err != nil {
		return arts, err
	}
	arts = append(arts, numberArt)

	visual, documents := splitForAlbum(sess.Items)
	for _, group := range [][]models.ContentItem{visual, documents} {
		if len(group) == 0 {
			continue
		}
		groupArts, err := c.transport.SendAlbum(ctx, chatID, group)
		arts = append(arts, groupArts...)
		if err != nil {
			return arts, err
		}
	}

	out := domain.Outbound{
		Text:      render.DraftText(c.messages, sess),
		ReplyTo:   numberArt.MessageID,
		Formatted: true,
	}
	if preview {
		out.Keyboard = render.CreatorMenu()
	} else {
		out.Keyboard = render.TakeTaskKeyboard(sess.DraftID)
	}

	textArt, err := c.transport.Send(ctx, chatID, out)
	if err != nil {
		return arts, err
	}
	return append(arts, textArt), nil
}

// splitForAlbum partitions items the way the transport can group them:
// photos and videos share a media group, documents get their own.
func splitForAlbum(items []models.ContentItem) (visual, documents []models.ContentItem) {
	for _, it := range items {
		if it.Kind == models.ContentDocument {
			documents = append(documents, it)
		} else {
			visual = append(visual, it)
		}
	}
	return visual, documents
}
