package intake

import (
	"log/slog"
	"sync"
	"time"

	"taskbot/internal/domain/models"
)

// Default debounce window and the cap on total deferral. The platform
// never signals the end of a media group, so a batch is considered
// complete once its highest origin sequence has been stable for one full
// window. The cap guarantees an eventual flush when stragglers keep
// arriving.
const (
	DefaultFlushWindow = 1200 * time.Millisecond
	DefaultMaxWait     = 4 * DefaultFlushWindow
)

// FlushFunc receives a completed batch exactly once. It runs on the
// aggregator's timer goroutine and must not call back into Ingest.
type FlushFunc func(batch models.Batch)

// Aggregator collects items that arrive tagged with the same batch id and
// emits one completed batch per id once arrivals go quiet.
type Aggregator struct {
	mu      sync.Mutex
	open    map[string]*openBatch
	window  time.Duration
	maxWait time.Duration
	flush   FlushFunc
	logger  *slog.Logger
}

type openBatch struct {
	batch models.Batch
	timer *time.Timer

	// armedSeq/armedAt record the highest sequence and time at the moment
	// the timer was last armed. A fire is stale when the timer was
	// re-armed after it was scheduled; a fire is deferred when the
	// sequence advanced between arming and firing.
	armedSeq int
	armedAt  time.Time
}

// NewAggregator builds an aggregator. Window and maxWait exist as
// parameters so tests can shrink them; production wiring passes the
// defaults.
func NewAggregator(window, maxWait time.Duration, flush FlushFunc, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		open:    make(map[string]*openBatch),
		window:  window,
		maxWait: maxWait,
		flush:   flush,
		logger:  logger,
	}
}

// Ingest adds one item to the batch identified by batchID, opening the
// batch on first sight. The flush window restarts only when seq is a new
// maximum; out-of-order stragglers ride the timer that is already
// running, so late arrivals cannot extend the window without bound.
func (a *Aggregator) Ingest(batchID string, conversationID, epoch int64, item models.ContentItem, seq int, caption string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ob, ok := a.open[batchID]
	if !ok {
		ob = &openBatch{batch: models.Batch{
			ID:             batchID,
			ConversationID: conversationID,
			Epoch:          epoch,
			FirstSeenAt:    time.Now(),
		}}
		ob.armedAt = ob.batch.FirstSeenAt
		ob.timer = time.AfterFunc(a.window, func() { a.expire(batchID) })
		a.open[batchID] = ob
	}

	ob.batch.Items = append(ob.batch.Items, item)
	if caption != "" {
		ob.batch.Caption = caption
	}
	if seq > ob.batch.HighestSeq {
		ob.batch.HighestSeq = seq
		// Restart the window for the new maximum, but never push the
		// flush past the total-wait cap.
		if time.Since(ob.batch.FirstSeenAt) < a.maxWait {
			ob.armedSeq = seq
			ob.armedAt = time.Now()
			ob.timer.Reset(a.window)
		}
	}
}

// OpenBatches reports how many batches are currently collecting.
func (a *Aggregator) OpenBatches() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.open)
}

func (a *Aggregator) expire(batchID string) {
	a.mu.Lock()

	ob, ok := a.open[batchID]
	if !ok {
		a.mu.Unlock()
		return
	}

	// The timer was re-armed after this fire was scheduled; the newer
	// deadline will fire on its own.
	if time.Since(ob.armedAt) < a.window {
		a.mu.Unlock()
		return
	}

	// The sequence advanced since arming. Defer once more unless the
	// batch has already waited the maximum total time.
	if ob.batch.HighestSeq > ob.armedSeq && time.Since(ob.batch.FirstSeenAt) < a.maxWait {
		ob.armedSeq = ob.batch.HighestSeq
		ob.armedAt = time.Now()
		ob.timer.Reset(a.window)
		a.mu.Unlock()
		return
	}

	delete(a.open, batchID)
	batch := ob.batch
	a.mu.Unlock()

	a.logger.Debug("batch flushed",
		"batch_id", batch.ID,
		"conversation_id", batch.ConversationID,
		"items", len(batch.Items),
	)
	a.flush(batch)
}
