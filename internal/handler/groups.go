package handler

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskbot/internal/domain"
)

// handleChatMember reacts to the bot's own membership changes. Being
// promoted to administrator registers the chat as a task target; a plain
// add only asks for the promotion.
func (r *Router) handleChatMember(ctx context.Context, m *tgbotapi.ChatMemberUpdated) error {
	if m.Chat.IsPrivate() {
		return nil
	}

	switch m.NewChatMember.Status {
	case "administrator":
		if err := r.api.CreateGroup(ctx, m.Chat.ID, m.Chat.Title, true); err != nil {
			// Re-promotion of an already registered group is fine.
			r.logger.Info("group registration skipped",
				"group_id", m.Chat.ID,
				"error", err,
			)
		}
		_, err := r.transport.Send(ctx, m.Chat.ID, domain.Outbound{
			Text: r.messages.Format("group.ready"),
		})
		return err

	case "member":
		_, err := r.transport.Send(ctx, m.Chat.ID, domain.Outbound{
			Text: r.messages.Format("group.added", m.Chat.Title),
		})
		return err

	case "left", "kicked":
		r.logger.Info("removed from group",
			"group_id", m.Chat.ID,
			"title", m.Chat.Title,
			"status", m.NewChatMember.Status,
		)
	}
	return nil
}
