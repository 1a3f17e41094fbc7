package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
	"taskbot/internal/repository/memory"
	"taskbot/internal/templates"
)

// fakeTransport records sends and deletes.
type fakeTransport struct {
	mu        sync.Mutex
	nextMsgID int
	sent      []domain.Outbound
	deleted   []models.Artifact
	deleteErr error
}

func (f *fakeTransport) Send(ctx context.Context, chatID int64, out domain.Outbound) (models.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsgID++
	f.sent = append(f.sent, out)
	return models.Artifact{ChatID: chatID, MessageID: f.nextMsgID}, nil
}

func (f *fakeTransport) SendAlbum(ctx context.Context, chatID int64, items []models.ContentItem) ([]models.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	arts := make([]models.Artifact, len(items))
	for i := range items {
		f.nextMsgID++
		arts[i] = models.Artifact{ChatID: chatID, MessageID: f.nextMsgID}
	}
	return arts, nil
}

func (f *fakeTransport) Edit(ctx context.Context, art models.Artifact, out domain.Outbound) error {
	return nil
}

func (f *fakeTransport) EditKeyboard(ctx context.Context, art models.Artifact, kb *models.Keyboard) error {
	return nil
}

func (f *fakeTransport) Delete(ctx context.Context, art models.Artifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, art)
	return f.deleteErr
}

func (f *fakeTransport) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

// fakeStore counts commits and can fail a configurable number of times.
type fakeStore struct {
	mu            sync.Mutex
	nextTaskID    int64
	commits       []commitCall
	failCreates   int
	attachErrRefs map[string]bool
	block         chan struct{} // when set, CreateTask waits on it
	entered       chan struct{} // signalled when CreateTask is reached
}

type commitCall struct {
	text      string
	createdBy int64
	groupID   int64
	items     []models.ContentItem
}

func (f *fakeStore) CreateTask(ctx context.Context, text string, createdBy, groupID int64) (int64, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreates > 0 {
		f.failCreates--
		return 0, errors.New("connection refused")
	}
	f.nextTaskID++
	f.commits = append(f.commits, commitCall{text: text, createdBy: createdBy, groupID: groupID})
	return f.nextTaskID, nil
}

func (f *fakeStore) AddAttachment(ctx context.Context, taskID int64, item models.ContentItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErrRefs[item.ContentRef] {
		return errors.New("attachment rejected")
	}
	if len(f.commits) > 0 {
		last := &f.commits[len(f.commits)-1]
		last.items = append(last.items, item)
	}
	return nil
}

func (f *fakeStore) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commits)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T) (*Controller, *memory.SessionStore, *fakeTransport, *fakeStore) {
	t.Helper()
	reg, err := templates.Load()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	sessions := memory.NewSessionStore()
	transport := &fakeTransport{}
	store := &fakeStore{}
	logger := testLogger()
	tracker := NewArtifactTracker(sessions, transport, logger)
	submitter := NewSubmissionCoordinator(store, logger)
	ctrl := NewController(sessions, transport, tracker, submitter, reg, logger)
	return ctrl, sessions, transport, store
}

const conv = int64(1000)

func TestIngestTextStartsCollecting(t *testing.T) {
	ctrl, sessions, transport, _ := newTestController(t)

	err := ctrl.Ingest(context.Background(), Intake{
		ConversationID: conv,
		Origin:         models.Artifact{ChatID: conv, MessageID: 1},
		Text:           "Fix door",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	sess := sessions.Get(conv)
	if sess.Phase != models.PhaseCollecting {
		t.Errorf("phase = %q, want collecting", sess.Phase)
	}
	if sess.DraftText != "Fix door" {
		t.Errorf("draft text = %q", sess.DraftText)
	}
	// Origin message plus rendered status are both retractable.
	if len(sess.Retractable) != 2 {
		t.Errorf("retractable = %d, want 2", len(sess.Retractable))
	}
	if len(transport.sent) != 1 {
		t.Errorf("status renders = %d, want 1", len(transport.sent))
	}
}

func TestIngestDeduplicatesAcrossBursts(t *testing.T) {
	ctrl, sessions, _, _ := newTestController(t)
	ctx := context.Background()

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Items: []models.ContentItem{
		{ContentRef: "a", Kind: models.ContentPhoto},
	}})
	ctrl.Ingest(ctx, Intake{ConversationID: conv, Items: []models.ContentItem{
		{ContentRef: "a", Kind: models.ContentPhoto},
		{ContentRef: "b", Kind: models.ContentVideo},
	}})

	sess := sessions.Get(conv)
	if len(sess.Items) != 2 {
		t.Errorf("items = %d, want 2 (deduplicated)", len(sess.Items))
	}
}

func TestApplyBatchDiscardsStaleEpoch(t *testing.T) {
	ctrl, sessions, _, _ := newTestController(t)
	ctx := context.Background()

	epoch := ctrl.CurrentEpoch(conv)
	sessions.Reset(conv) // user cancelled while the batch was aggregating

	err := ctrl.ApplyBatch(ctx, models.Batch{
		ID:             "g1",
		ConversationID: conv,
		Epoch:          epoch,
		Items:          []models.ContentItem{{ContentRef: "a"}},
	})
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}

	sess := sessions.Get(conv)
	if len(sess.Items) != 0 || sess.Phase != models.PhaseIdle {
		t.Errorf("stale batch was applied: %+v", sess)
	}
}

func TestReviewRequiresDraftText(t *testing.T) {
	ctrl, sessions, _, _ := newTestController(t)
	ctx := context.Background()

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Items: []models.ContentItem{{ContentRef: "a", Kind: models.ContentPhoto}}})

	err := ctrl.Review(ctx, conv)

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if sess := sessions.Get(conv); sess.Phase != models.PhaseCollecting {
		t.Errorf("phase = %q, want collecting (review refused)", sess.Phase)
	}
}

func TestReviewRetractsAndRerenders(t *testing.T) {
	ctrl, sessions, transport, _ := newTestController(t)
	ctx := context.Background()

	ctrl.Ingest(ctx, Intake{
		ConversationID: conv,
		Origin:         models.Artifact{ChatID: conv, MessageID: 1},
		Text:           "Fix door",
	})

	if err := ctrl.Review(ctx, conv); err != nil {
		t.Fatalf("review: %v", err)
	}

	sess := sessions.Get(conv)
	if sess.Phase != models.PhaseReviewing {
		t.Errorf("phase = %q, want reviewing", sess.Phase)
	}
	if transport.deleteCount() != 2 {
		t.Errorf("deletes = %d, want 2 (origin + status)", transport.deleteCount())
	}
	// Preview artifacts replace the drained ones.
	if len(sess.Retractable) == 0 {
		t.Error("preview artifacts not recorded")
	}
}

// Scenario: text arrives, then submit. Commit is called once with the
// draft text, and the session ends idle and empty.
func TestSubmitCommitsOnceAndResets(t *testing.T) {
	ctrl, sessions, _, store := newTestController(t)
	ctx := context.Background()

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Text: "Fix door"})
	if err := ctrl.Review(ctx, conv); err != nil {
		t.Fatalf("review: %v", err)
	}

	result, err := ctrl.Submit(ctx, conv, -2000, 55)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if store.commitCount() != 1 {
		t.Fatalf("commits = %d, want 1", store.commitCount())
	}
	call := store.commits[0]
	if call.text != "Fix door" || call.createdBy != 55 || call.groupID != -2000 {
		t.Errorf("commit call = %+v", call)
	}
	if len(call.items) != 0 {
		t.Errorf("items = %d, want 0", len(call.items))
	}
	if result.TaskID == 0 {
		t.Error("task id not returned")
	}

	sess := sessions.Get(conv)
	if sess.Phase != models.PhaseIdle || sess.HasContent() || sess.DraftID != 0 {
		t.Errorf("session not reset: %+v", sess)
	}
}

// Scenario: commit fails on the network, the session returns to
// Reviewing; a retried submit with unchanged state commits exactly once.
func TestSubmitFailureReturnsToReviewingAndRetries(t *testing.T) {
	ctrl, sessions, _, store := newTestController(t)
	ctx := context.Background()
	store.failCreates = 1

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Text: "Fix door"})
	if err := ctrl.Review(ctx, conv); err != nil {
		t.Fatalf("review: %v", err)
	}

	_, err := ctrl.Submit(ctx, conv, -2000, 55)
	var cerr *domain.CommitError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want CommitError", err)
	}

	sess := sessions.Get(conv)
	if sess.Phase != models.PhaseReviewing {
		t.Errorf("phase = %q, want reviewing after failed commit", sess.Phase)
	}
	if sess.DraftText != "Fix door" {
		t.Errorf("draft text lost on failed commit: %q", sess.DraftText)
	}

	if _, err := ctrl.Submit(ctx, conv, -2000, 55); err != nil {
		t.Fatalf("retried submit: %v", err)
	}
	if store.commitCount() != 1 {
		t.Errorf("successful commits = %d, want 1", store.commitCount())
	}
	if sess := sessions.Get(conv); sess.Phase != models.PhaseIdle {
		t.Errorf("phase = %q, want idle after retry", sess.Phase)
	}
}

// Scenario: cancel with recorded artifacts deletes every artifact and
// resets the session.
func TestCancelRetractsEverything(t *testing.T) {
	ctrl, sessions, transport, _ := newTestController(t)
	ctx := context.Background()

	ctrl.Ingest(ctx, Intake{
		ConversationID: conv,
		Origin:         models.Artifact{ChatID: conv, MessageID: 1},
		Text:           "Fix door",
	})
	recorded := len(sessions.Get(conv).Retractable)
	if recorded < 2 {
		t.Fatalf("retractable = %d, want at least 2", recorded)
	}

	if err := ctrl.Cancel(ctx, conv); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if transport.deleteCount() != recorded {
		t.Errorf("deletes = %d, want %d", transport.deleteCount(), recorded)
	}
	sess := sessions.Get(conv)
	if sess.Phase != models.PhaseIdle || sess.HasContent() || len(sess.Retractable) != 0 {
		t.Errorf("session not reset: %+v", sess)
	}
}

func TestCancelSwallowsRetractionFailures(t *testing.T) {
	ctrl, sessions, transport, _ := newTestController(t)
	ctx := context.Background()
	transport.deleteErr = errors.New("message is too old")

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Text: "Fix door"})

	if err := ctrl.Cancel(ctx, conv); err != nil {
		t.Fatalf("cancel must swallow retraction failures, got %v", err)
	}
	if sess := sessions.Get(conv); sess.Phase != models.PhaseIdle {
		t.Errorf("phase = %q, want idle", sess.Phase)
	}
}

// Two concurrent submits for one conversation must produce exactly one
// commit; the loser is rejected by the Submitting phase guard.
func TestConcurrentSubmitCommitsExactlyOnce(t *testing.T) {
	ctrl, _, _, store := newTestController(t)
	ctx := context.Background()
	store.block = make(chan struct{})
	store.entered = make(chan struct{}, 1)

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Text: "Fix door"})
	if err := ctrl.Review(ctx, conv); err != nil {
		t.Fatalf("review: %v", err)
	}

	first := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(ctx, conv, -2000, 55)
		first <- err
	}()

	// Wait until the first submit holds the Submitting phase and sits
	// inside the blocked commit, then retrigger.
	<-store.entered
	_, err := ctrl.Submit(ctx, conv, -2000, 55)
	if !errors.Is(err, domain.ErrSubmitInFlight) {
		t.Fatalf("second submit err = %v, want ErrSubmitInFlight", err)
	}

	close(store.block)
	if err := <-first; err != nil {
		t.Fatalf("first submit: %v", err)
	}

	if store.commitCount() != 1 {
		t.Fatalf("commits = %d, want exactly 1", store.commitCount())
	}
}

// Submitting is only reachable from Reviewing; a draft still collecting
// cannot be committed even when it already has text.
func TestSubmitRequiresReviewingPhase(t *testing.T) {
	ctrl, sessions, _, store := newTestController(t)
	ctx := context.Background()

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Text: "Fix door"})

	_, err := ctrl.Submit(ctx, conv, -2000, 55)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if store.commitCount() != 0 {
		t.Errorf("commits = %d, want 0", store.commitCount())
	}
	if sess := sessions.Get(conv); sess.Phase != models.PhaseCollecting {
		t.Errorf("phase = %q, want collecting (submit refused)", sess.Phase)
	}
}

// A cancel that lands first empties the draft atomically, so a submit
// arriving right after finds nothing to commit.
func TestSubmitAfterCancelFindsNothing(t *testing.T) {
	ctrl, _, _, store := newTestController(t)
	ctx := context.Background()

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Text: "Fix door"})
	if err := ctrl.Review(ctx, conv); err != nil {
		t.Fatalf("review: %v", err)
	}
	if err := ctrl.Cancel(ctx, conv); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := ctrl.Submit(ctx, conv, -2000, 55)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if store.commitCount() != 0 {
		t.Errorf("commits = %d, want 0 (cancelled draft must not commit)", store.commitCount())
	}
}

// A cancel arriving while the commit is on the network is rejected by the
// Submitting phase guard instead of resetting under the submit's feet.
func TestCancelDuringCommitIsRejected(t *testing.T) {
	ctrl, _, _, store := newTestController(t)
	ctx := context.Background()
	store.block = make(chan struct{})
	store.entered = make(chan struct{}, 1)

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Text: "Fix door"})
	if err := ctrl.Review(ctx, conv); err != nil {
		t.Fatalf("review: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(ctx, conv, -2000, 55)
		done <- err
	}()

	<-store.entered
	if err := ctrl.Cancel(ctx, conv); !errors.Is(err, domain.ErrSubmitInFlight) {
		t.Fatalf("cancel err = %v, want ErrSubmitInFlight", err)
	}

	close(store.block)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if store.commitCount() != 1 {
		t.Errorf("commits = %d, want 1", store.commitCount())
	}
}

// A reset that slips in while the commit is on the network owns the
// session; the submit's epilogue detects the epoch move and must not
// destroy the draft the user started since.
func TestResetDuringCommitPreservesNewDraft(t *testing.T) {
	ctrl, sessions, _, store := newTestController(t)
	ctx := context.Background()
	store.block = make(chan struct{})
	store.entered = make(chan struct{}, 1)

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Text: "Old task"})
	if err := ctrl.Review(ctx, conv); err != nil {
		t.Fatalf("review: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(ctx, conv, -2000, 55)
		done <- err
	}()

	// Park the submit inside the commit, reset the session out from
	// under it, and start a fresh draft.
	<-store.entered
	sessions.Reset(conv)
	if err := ctrl.Ingest(ctx, Intake{ConversationID: conv, Text: "New task"}); err != nil {
		t.Fatalf("ingest new draft: %v", err)
	}

	close(store.block)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}

	sess := sessions.Get(conv)
	if sess.DraftText != "New task" {
		t.Errorf("draft text = %q, want %q (stale submit clobbered the new draft)", sess.DraftText, "New task")
	}
	if sess.Phase != models.PhaseCollecting {
		t.Errorf("phase = %q, want collecting", sess.Phase)
	}
}

func TestSubmitWithoutTextIsValidationError(t *testing.T) {
	ctrl, _, _, store := newTestController(t)
	ctx := context.Background()

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Items: []models.ContentItem{{ContentRef: "a", Kind: models.ContentPhoto}}})

	_, err := ctrl.Submit(ctx, conv, -2000, 55)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if store.commitCount() != 0 {
		t.Errorf("commits = %d, want 0", store.commitCount())
	}
}

func TestSubmitReportsPartialAttachmentFailure(t *testing.T) {
	ctrl, _, _, store := newTestController(t)
	ctx := context.Background()
	store.attachErrRefs = map[string]bool{"bad": true}

	ctrl.Ingest(ctx, Intake{ConversationID: conv, Text: "Fix door", Items: []models.ContentItem{
		{ContentRef: "good", Kind: models.ContentPhoto},
		{ContentRef: "bad", Kind: models.ContentVideo},
	}})
	if err := ctrl.Review(ctx, conv); err != nil {
		t.Fatalf("review: %v", err)
	}

	result, err := ctrl.Submit(ctx, conv, -2000, 55)
	if err != nil {
		t.Fatalf("partial attachment failure must not fail the submit: %v", err)
	}
	if result.FailedAttachments != 1 {
		t.Errorf("failed attachments = %d, want 1", result.FailedAttachments)
	}
	if store.commitCount() != 1 {
		t.Errorf("commits = %d, want 1", store.commitCount())
	}
}
