package memory

import (
	"errors"
	"sync"
	"testing"

	"taskbot/internal/domain/models"
)

func TestGetCreatesIdleSession(t *testing.T) {
	store := NewSessionStore()

	sess := store.Get(42)

	if sess.ConversationID != 42 {
		t.Errorf("conversation id = %d, want 42", sess.ConversationID)
	}
	if sess.Phase != models.PhaseIdle {
		t.Errorf("phase = %q, want %q", sess.Phase, models.PhaseIdle)
	}
	if len(sess.Items) != 0 || sess.DraftText != "" || sess.DraftID != 0 {
		t.Errorf("idle session carries state: %+v", sess)
	}
}

func TestUpdateAppliesMutation(t *testing.T) {
	store := NewSessionStore()

	sess, err := store.Update(1, func(s *models.Session) error {
		s.Phase = models.PhaseCollecting
		s.DraftText = "fix door"
		s.Items = append(s.Items, models.ContentItem{ContentRef: "a", Kind: models.ContentPhoto})
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if sess.Phase != models.PhaseCollecting {
		t.Errorf("phase = %q, want collecting", sess.Phase)
	}
	if got := store.Get(1); got.DraftText != "fix door" || len(got.Items) != 1 {
		t.Errorf("mutation not persisted: %+v", got)
	}
}

func TestUpdateErrorDiscardsMutation(t *testing.T) {
	store := NewSessionStore()
	boom := errors.New("boom")

	sess, err := store.Update(1, func(s *models.Session) error {
		s.DraftText = "should not stick"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if sess.DraftText != "" {
		t.Errorf("returned session carries discarded mutation: %+v", sess)
	}
	if got := store.Get(1); got.DraftText != "" {
		t.Errorf("stored session carries discarded mutation: %+v", got)
	}
}

func TestResetRestoresIdleAndBumpsEpoch(t *testing.T) {
	store := NewSessionStore()

	store.Update(7, func(s *models.Session) error {
		s.Phase = models.PhaseReviewing
		s.DraftText = "draft"
		s.Items = []models.ContentItem{{ContentRef: "x"}}
		s.Retractable = []models.Artifact{{ChatID: 7, MessageID: 1}}
		s.DraftID = 99
		return nil
	})
	before := store.Get(7)

	sess := store.Reset(7)

	if sess.Phase != models.PhaseIdle {
		t.Errorf("phase = %q, want idle", sess.Phase)
	}
	if len(sess.Items) != 0 || sess.DraftText != "" || sess.DraftID != 0 || len(sess.Retractable) != 0 {
		t.Errorf("reset session carries state: %+v", sess)
	}
	if sess.Epoch != before.Epoch+1 {
		t.Errorf("epoch = %d, want %d", sess.Epoch, before.Epoch+1)
	}
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	store := NewSessionStore()
	store.Update(1, func(s *models.Session) error {
		s.Items = []models.ContentItem{{ContentRef: "a"}}
		return nil
	})

	sess := store.Get(1)
	sess.Items[0].ContentRef = "mutated"

	if got := store.Get(1); got.Items[0].ContentRef != "a" {
		t.Errorf("snapshot aliases stored slice: %q", got.Items[0].ContentRef)
	}
}

func TestConcurrentUpdatesSerializePerConversation(t *testing.T) {
	store := NewSessionStore()
	const workers = 32
	const perWorker = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// Half the workers hammer conversation 1, the rest spread out.
			conv := int64(1)
			if n%2 == 0 {
				conv = int64(100 + n)
			}
			for j := 0; j < perWorker; j++ {
				store.Update(conv, func(s *models.Session) error {
					s.Items = append(s.Items, models.ContentItem{ContentRef: "r"})
					return nil
				})
			}
		}(i)
	}
	wg.Wait()

	got := len(store.Get(1).Items)
	want := (workers / 2) * perWorker
	if got != want {
		t.Errorf("conversation 1 item count = %d, want %d (lost updates)", got, want)
	}
}
