package telegram

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func messageUpdate(id int, chatID int64) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			Chat:      &tgbotapi.Chat{ID: chatID},
		},
	}
}

// Updates for one chat must be handled in arrival order even though the
// sequencer runs chats concurrently.
func TestSequencerKeepsPerChatOrder(t *testing.T) {
	var mu sync.Mutex
	got := make(map[int64][]int)

	handle := func(ctx context.Context, upd *tgbotapi.Update) error {
		mu.Lock()
		defer mu.Unlock()
		chatID := upd.Message.Chat.ID
		got[chatID] = append(got[chatID], upd.UpdateID)
		return nil
	}

	seq := newSequencer(handle, testLogger())
	chats := []int64{100, 200, 300}
	const perChat = 50

	id := 0
	for i := 0; i < perChat; i++ {
		for _, chat := range chats {
			id++
			seq.Enqueue(context.Background(), messageUpdate(id, chat))
		}
	}
	seq.Wait()

	for _, chat := range chats {
		ids := got[chat]
		if len(ids) != perChat {
			t.Fatalf("chat %d handled %d updates, want %d", chat, len(ids), perChat)
		}
		for i := 1; i < len(ids); i++ {
			if ids[i] < ids[i-1] {
				t.Fatalf("chat %d handled update %d before %d", chat, ids[i], ids[i-1])
			}
		}
	}
}

// A slow handler for one chat must not delay another chat's updates.
func TestSequencerDoesNotSerializeAcrossChats(t *testing.T) {
	released := make(chan struct{})
	handled := make(chan int64, 2)

	handle := func(ctx context.Context, upd *tgbotapi.Update) error {
		chatID := upd.Message.Chat.ID
		if chatID == 1 {
			<-released
		}
		handled <- chatID
		return nil
	}

	seq := newSequencer(handle, testLogger())
	seq.Enqueue(context.Background(), messageUpdate(1, 1))
	seq.Enqueue(context.Background(), messageUpdate(2, 2))

	if got := <-handled; got != 2 {
		t.Fatalf("first completed chat = %d, want 2 (chat 1 is parked)", got)
	}
	close(released)
	seq.Wait()
}

func TestSequenceKey(t *testing.T) {
	tests := []struct {
		name string
		upd  tgbotapi.Update
		want int64
	}{
		{
			name: "message",
			upd:  messageUpdate(1, 42),
			want: 42,
		},
		{
			name: "callback query",
			upd: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: -500}},
			}},
			want: -500,
		},
		{
			name: "chat member change",
			upd: tgbotapi.Update{MyChatMember: &tgbotapi.ChatMemberUpdated{
				Chat: tgbotapi.Chat{ID: -600},
			}},
			want: -600,
		},
		{
			name: "no chat",
			upd:  tgbotapi.Update{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sequenceKey(&tt.upd); got != tt.want {
				t.Errorf("sequenceKey() = %d, want %d", got, tt.want)
			}
		})
	}
}
