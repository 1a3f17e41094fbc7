// Package access resolves which role a Telegram user holds. Role data
// lives in the task-management backend; this package adds the degradation
// policy (lookup failures mean unauthenticated, never a crash) and a
// short-lived cache so message bursts do not re-query per message.
package access

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
	"taskbot/internal/taskapi"
)

const cacheTTL = 30 * time.Second

var _ domain.Classifier = (*Classifier)(nil)

// UserDirectory is the slice of the task API the classifier needs.
type UserDirectory interface {
	GetUser(ctx context.Context, userID int64) (*taskapi.User, error)
}

// Classifier maps Telegram user ids to classified users.
type Classifier struct {
	directory UserDirectory
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[int64]cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

type cacheEntry struct {
	user    models.User
	expires time.Time
}

func NewClassifier(directory UserDirectory, logger *slog.Logger) *Classifier {
	return &Classifier{
		directory: directory,
		logger:    logger,
		cache:     make(map[int64]cacheEntry),
		ttl:       cacheTTL,
		now:       time.Now,
	}
}

// Classify returns the user's backend identity. Unregistered users and
// lookup failures both come back as RoleUnknown: an unknown error during
// the check degrades to "unauthenticated" rather than failing the
// conversation.
func (c *Classifier) Classify(ctx context.Context, userID int64) models.User {
	c.mu.Lock()
	if entry, ok := c.cache[userID]; ok && c.now().Before(entry.expires) {
		c.mu.Unlock()
		return entry.user
	}
	c.mu.Unlock()

	user := models.User{ID: userID, Role: models.RoleUnknown}
	record, err := c.directory.GetUser(ctx, userID)
	switch {
	case err != nil:
		c.logger.Warn("role lookup failed, treating user as unauthenticated",
			"user_id", userID,
			"error", err,
		)
		// Failures are not cached; the next update retries the lookup.
		return user
	case record != nil:
		user = models.User{
			ID:       record.UserID,
			Name:     record.Name,
			Username: record.UserName,
			Role:     models.ParseRole(record.Type),
			Banned:   record.IsBanned,
		}
	}

	c.mu.Lock()
	c.cache[userID] = cacheEntry{user: user, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return user
}

// Invalidate drops the cached classification, used right after a role
// change or ban so the next update sees the new state immediately.
func (c *Classifier) Invalidate(userID int64) {
	c.mu.Lock()
	delete(c.cache, userID)
	c.mu.Unlock()
}
