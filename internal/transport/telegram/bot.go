// Package telegram adapts the Bot API client to the transport the
// conversation core works against. The core never sees tgbotapi types;
// keyboards and attachments cross the boundary in domain form.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
)

// Telegram caps media groups at ten entries per request.
const albumChunkSize = 10

var _ domain.Transport = (*Transport)(nil)

// Transport delivers messages through the Telegram Bot API.
type Transport struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

func NewTransport(bot *tgbotapi.BotAPI, logger *slog.Logger) *Transport {
	return &Transport{bot: bot, logger: logger}
}

func (t *Transport) Send(ctx context.Context, chatID int64, out domain.Outbound) (models.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return models.Artifact{}, err
	}

	msg := tgbotapi.NewMessage(chatID, out.Text)
	msg.ReplyToMessageID = out.ReplyTo
	msg.DisableNotification = out.Silent
	if out.Formatted {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	if markup := markupFrom(out.Keyboard); markup != nil {
		msg.ReplyMarkup = *markup
	}

	sent, err := t.bot.Send(msg)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return models.Artifact{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (t *Transport) SendAlbum(ctx context.Context, chatID int64, items []models.ContentItem) ([]models.Artifact, error) {
	var artifacts []models.Artifact
	for start := 0; start < len(items); start += albumChunkSize {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}

		end := start + albumChunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		if len(chunk) == 1 {
			art, err := t.sendSingle(chatID, chunk[0])
			if err != nil {
				return artifacts, err
			}
			artifacts = append(artifacts, art)
			continue
		}

		media := make([]interface{}, 0, len(chunk))
		for _, item := range chunk {
			media = append(media, inputMediaFor(item))
		}
		sent, err := t.bot.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media))
		if err != nil {
			return artifacts, fmt.Errorf("send album to chat %d: %w", chatID, err)
		}
		for _, msg := range sent {
			artifacts = append(artifacts, models.Artifact{ChatID: chatID, MessageID: msg.MessageID})
		}
	}
	return artifacts, nil
}

// sendSingle covers the one-item case: Telegram rejects media groups with
// fewer than two entries.
func (t *Transport) sendSingle(chatID int64, item models.ContentItem) (models.Artifact, error) {
	var cfg tgbotapi.Chattable
	switch item.Kind {
	case models.ContentPhoto:
		cfg = tgbotapi.NewPhoto(chatID, tgbotapi.FileID(item.ContentRef))
	case models.ContentVideo:
		cfg = tgbotapi.NewVideo(chatID, tgbotapi.FileID(item.ContentRef))
	default:
		cfg = tgbotapi.NewDocument(chatID, tgbotapi.FileID(item.ContentRef))
	}

	sent, err := t.bot.Send(cfg)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("send %s to chat %d: %w", item.Kind, chatID, err)
	}
	return models.Artifact{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (t *Transport) Edit(ctx context.Context, art models.Artifact, out domain.Outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(art.ChatID, art.MessageID, out.Text)
	if out.Formatted {
		edit.ParseMode = tgbotapi.ModeHTML
	}
	edit.ReplyMarkup = markupFrom(out.Keyboard)

	if _, err := t.bot.Request(edit); err != nil {
		return mapError(fmt.Errorf("edit message %d in chat %d: %w", art.MessageID, art.ChatID, err), err)
	}
	return nil
}

func (t *Transport) EditKeyboard(ctx context.Context, art models.Artifact, kb *models.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	markup := markupFrom(kb)
	if markup == nil {
		markup = &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(art.ChatID, art.MessageID, *markup)

	if _, err := t.bot.Request(edit); err != nil {
		return mapError(fmt.Errorf("edit keyboard on message %d in chat %d: %w", art.MessageID, art.ChatID, err), err)
	}
	return nil
}

func (t *Transport) Delete(ctx context.Context, art models.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(art.ChatID, art.MessageID)); err != nil {
		return mapError(fmt.Errorf("delete message %d in chat %d: %w", art.MessageID, art.ChatID, err), err)
	}
	return nil
}

// AnswerCallback acknowledges a callback query so the client stops
// showing the loading spinner. Text, when set, appears as a toast.
func (t *Transport) AnswerCallback(callbackID, text string) {
	if _, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		t.logger.Debug("answer callback failed", "error", err)
	}
}

func inputMediaFor(item models.ContentItem) interface{} {
	ref := tgbotapi.FileID(item.ContentRef)
	switch item.Kind {
	case models.ContentPhoto:
		return tgbotapi.NewInputMediaPhoto(ref)
	case models.ContentVideo:
		return tgbotapi.NewInputMediaVideo(ref)
	default:
		return tgbotapi.NewInputMediaDocument(ref)
	}
}

func markupFrom(kb *models.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if kb.Empty() {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// mapError translates "already gone" responses into ErrNotFound so
// retraction paths can treat them as success, and swallows "not
// modified": re-rendering identical content is a no-op, not a failure.
func mapError(wrapped, cause error) error {
	msg := strings.ToLower(cause.Error())
	switch {
	case strings.Contains(msg, "message is not modified"):
		return nil
	case strings.Contains(msg, "message to delete not found"),
		strings.Contains(msg, "message to edit not found"),
		strings.Contains(msg, "message can't be deleted"):
		return domain.ErrNotFound
	}
	return wrapped
}
