package handler

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
	"taskbot/internal/render"
)

// handleStart bootstraps access. The very first /start makes that user
// the superadmin; later unknown users file a registration request the
// superadmin approves with a role pick.
func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message, user models.User) error {
	name := displayName(msg.From)

	switch {
	case user.Role == models.RoleSuperadmin || user.Role == models.RoleManager:
		_, err := r.transport.Send(ctx, msg.Chat.ID, domain.Outbound{
			Text:     r.messages.Format("admin.menu"),
			Keyboard: render.AdminMenu(),
		})
		return err

	case user.Role == models.RoleCreator:
		r.ctrl.ShowStatus(ctx, msg.Chat.ID)
		return nil

	case user.Role == models.RoleRegistration:
		r.say(ctx, msg.Chat.ID, "start.request_sent")
		return nil

	case user.Known():
		// Executors have no private-chat surface.
		return nil
	}

	users, err := r.api.ListUsers(ctx)
	if err != nil {
		r.say(ctx, msg.Chat.ID, "error.generic")
		return err
	}

	if len(users) == 0 {
		if _, err := r.api.RegisterUser(ctx, user.ID, name, string(models.RoleSuperadmin), user.Username); err != nil {
			return err
		}
		r.classifier.Invalidate(user.ID)
		_, err := r.transport.Send(ctx, msg.Chat.ID, domain.Outbound{
			Text: r.messages.Format("start.first_admin"),
		})
		return err
	}

	if _, err := r.api.RegisterUser(ctx, user.ID, name, string(models.RoleRegistration), user.Username); err != nil {
		return err
	}
	r.classifier.Invalidate(user.ID)

	for _, admin := range users {
		if admin.Type != string(models.RoleSuperadmin) {
			continue
		}
		if _, err := r.transport.Send(ctx, admin.UserID, domain.Outbound{
			Text:      r.messages.Format("start.request", user.ID, name),
			Formatted: true,
			Keyboard:  render.RegistrationApproval(user.ID),
		}); err != nil {
			r.logger.Warn("registration request delivery failed",
				"admin_id", admin.UserID,
				"error", err,
			)
		}
	}

	r.say(ctx, msg.Chat.ID, "start.request_sent")
	return nil
}

func displayName(from *tgbotapi.User) string {
	if from == nil {
		return ""
	}
	return strings.TrimSpace(from.FirstName + " " + from.LastName)
}
