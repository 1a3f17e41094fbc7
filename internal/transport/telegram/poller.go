package telegram

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskbot/internal/middleware"
)

const pollTimeoutSeconds = 30

// Poller long-polls Telegram for updates and hands them to a sequencer
// that keeps each conversation's updates in arrival order while letting
// different conversations proceed concurrently.
type Poller struct {
	bot    *tgbotapi.BotAPI
	seq    *sequencer
	logger *slog.Logger
}

func NewPoller(bot *tgbotapi.BotAPI, dispatch middleware.Handler, logger *slog.Logger) *Poller {
	return &Poller{
		bot:    bot,
		seq:    newSequencer(dispatch, logger),
		logger: logger,
	}
}

// Run blocks until ctx is cancelled, then waits for in-flight handlers
// to finish.
func (p *Poller) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	cfg.AllowedUpdates = []string{"message", "callback_query", "my_chat_member"}

	updates := p.bot.GetUpdatesChan(cfg)
	p.logger.Info("update polling started")

	for {
		select {
		case <-ctx.Done():
			p.bot.StopReceivingUpdates()
			p.seq.Wait()
			p.logger.Info("update polling stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				p.seq.Wait()
				return
			}
			p.seq.Enqueue(ctx, upd)
		}
	}
}

// sequencer fans updates out to one worker per conversation. A worker
// drains its conversation's queue in FIFO order and exits when the queue
// empties, so a handler for chat A never delays chat B, and two quick
// messages from one chat can never apply in reverse.
type sequencer struct {
	handle middleware.Handler
	logger *slog.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	queues map[int64][]tgbotapi.Update
}

func newSequencer(handle middleware.Handler, logger *slog.Logger) *sequencer {
	return &sequencer{
		handle: handle,
		logger: logger,
		queues: make(map[int64][]tgbotapi.Update),
	}
}

// Enqueue appends the update to its conversation's queue, starting a
// worker if none is draining that conversation. A queue entry exists
// exactly while its worker is running.
func (s *sequencer) Enqueue(ctx context.Context, upd tgbotapi.Update) {
	key := sequenceKey(&upd)

	s.mu.Lock()
	_, running := s.queues[key]
	s.queues[key] = append(s.queues[key], upd)
	if running {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.drain(ctx, key)
}

func (s *sequencer) drain(ctx context.Context, key int64) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		queue := s.queues[key]
		if len(queue) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		upd := queue[0]
		s.queues[key] = queue[1:]
		s.mu.Unlock()

		if err := s.handle(ctx, &upd); err != nil {
			s.logger.Error("update handling failed",
				"update_id", upd.UpdateID,
				"error", err,
			)
		}
	}
}

// Wait blocks until every queued update has been handled.
func (s *sequencer) Wait() {
	s.wg.Wait()
}

// sequenceKey picks the conversation an update belongs to. Updates with
// no chat (rare service updates) share one ordering lane.
func sequenceKey(upd *tgbotapi.Update) int64 {
	switch {
	case upd.Message != nil:
		return upd.Message.Chat.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID
	case upd.MyChatMember != nil:
		return upd.MyChatMember.Chat.ID
	}
	return 0
}
