// Package memory provides the in-process session store. Conversation
// state is deliberately not durable: losing open drafts on restart is an
// accepted failure mode.
package memory

import (
	"sync"

	"taskbot/internal/domain/models"
)

// SessionStore keeps one Session per conversation. The outer mutex guards
// only the map; every entry carries its own lock so mutations for one
// conversation serialize against each other without serializing unrelated
// conversations.
type SessionStore struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	sess models.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		entries: make(map[int64]*entry),
	}
}

// entryFor returns the entry for a conversation, creating an idle session
// lazily on first touch.
func (s *SessionStore) entryFor(conversationID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[conversationID]
	if !ok {
		e = &entry{sess: models.Session{
			ConversationID: conversationID,
			Phase:          models.PhaseIdle,
		}}
		s.entries[conversationID] = e
	}
	return e
}

// Get returns a snapshot of the conversation's session.
func (s *SessionStore) Get(conversationID int64) models.Session {
	e := s.entryFor(conversationID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(&e.sess)
}

// Update applies fn to the session under the conversation's lock. If fn
// returns an error the mutation is discarded and the pre-mutation state
// is returned alongside the error.
func (s *SessionStore) Update(conversationID int64, fn func(*models.Session) error) (models.Session, error) {
	e := s.entryFor(conversationID)
	e.mu.Lock()
	defer e.mu.Unlock()

	scratch := snapshot(&e.sess)
	if err := fn(&scratch); err != nil {
		return snapshot(&e.sess), err
	}
	e.sess = scratch
	return snapshot(&e.sess), nil
}

// Reset restores the idle state, drops all accumulated content and bumps
// the epoch so in-flight batch flushes for the old draft are discarded.
func (s *SessionStore) Reset(conversationID int64) models.Session {
	e := s.entryFor(conversationID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sess = models.Session{
		ConversationID: conversationID,
		Phase:          models.PhaseIdle,
		Epoch:          e.sess.Epoch + 1,
	}
	return snapshot(&e.sess)
}

// snapshot copies a session so callers never share the stored slices.
func snapshot(sess *models.Session) models.Session {
	cp := *sess
	cp.Items = append([]models.ContentItem(nil), sess.Items...)
	cp.Retractable = append([]models.Artifact(nil), sess.Retractable...)
	return cp
}
