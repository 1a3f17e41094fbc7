package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
)

// ArtifactTracker records every UI-visible side effect produced while a
// draft is being built so the whole set can be retracted at once.
type ArtifactTracker struct {
	sessions  domain.SessionRepository
	transport domain.Transport
	logger    *slog.Logger
}

func NewArtifactTracker(sessions domain.SessionRepository, transport domain.Transport, logger *slog.Logger) *ArtifactTracker {
	return &ArtifactTracker{
		sessions:  sessions,
		transport: transport,
		logger:    logger,
	}
}

// Record appends artifacts to the conversation's retractable list. A
// session still idle moves to collecting: recording a side effect is
// always the consequence of a first inbound event.
func (t *ArtifactTracker) Record(conversationID int64, artifacts ...models.Artifact) {
	if len(artifacts) == 0 {
		return
	}
	t.sessions.Update(conversationID, func(s *models.Session) error {
		if s.Phase == models.PhaseIdle {
			s.Phase = models.PhaseCollecting
		}
		s.Retractable = append(s.Retractable, artifacts...)
		return nil
	})
}

// DrainAndRetract snapshots the retractable list, clears it, and deletes
// every artifact. Returns the number of artifacts retracted without
// error.
func (t *ArtifactTracker) DrainAndRetract(ctx context.Context, conversationID int64) int {
	var drained []models.Artifact
	t.sessions.Update(conversationID, func(s *models.Session) error {
		drained = s.Retractable
		s.Retractable = nil
		return nil
	})
	return t.Retract(ctx, conversationID, drained)
}

// Retract deletes the given artifacts. Per-artifact failures (already
// deleted, permission lost) are logged and swallowed; the sweep never
// aborts.
func (t *ArtifactTracker) Retract(ctx context.Context, conversationID int64, artifacts []models.Artifact) int {
	retracted := 0
	for _, art := range artifacts {
		if err := t.transport.Delete(ctx, art); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				rerr := &domain.RetractionError{
					Artifact: fmt.Sprintf("%d/%d", art.ChatID, art.MessageID),
					Err:      err,
				}
				t.logger.Warn("artifact retraction failed",
					"conversation_id", conversationID,
					"error", rerr,
				)
			}
			continue
		}
		retracted++
	}
	return retracted
}
