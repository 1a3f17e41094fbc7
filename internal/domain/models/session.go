package models

// Phase is the lifecycle state of a conversation's draft.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCollecting Phase = "collecting"
	PhaseReviewing  Phase = "reviewing"
	PhaseSubmitting Phase = "submitting"
)

// Artifact is a handle to a transport-rendered message the bot produced
// (or consumed) while building a draft, kept so it can be retracted.
type Artifact struct {
	ChatID    int64
	MessageID int
}

// Session is the per-conversation draft state. One Session exists per
// conversation; it is created lazily on the first inbound event and reset
// after a successful submit or an explicit cancel.
type Session struct {
	ConversationID int64
	Items          []ContentItem
	DraftText      string
	Retractable    []Artifact
	DraftID        int64 // task id assigned by the store, 0 until committed
	Phase          Phase

	// Epoch increases on every reset. Late batch flushes carrying a stale
	// epoch are discarded instead of resurrecting a cancelled draft.
	Epoch int64
}

// HasContent reports whether anything has been collected yet.
func (s *Session) HasContent() bool {
	return s.DraftText != "" || len(s.Items) > 0
}

// CountByKind returns the number of collected items per content kind.
func (s *Session) CountByKind() map[ContentKind]int {
	counts := make(map[ContentKind]int, 3)
	for _, it := range s.Items {
		counts[it.Kind]++
	}
	return counts
}
