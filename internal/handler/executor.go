package handler

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
	"taskbot/internal/render"
)

// executorCallback covers the published-task lifecycle inside group
// chats: take, drop, complete. The backend owns the status rules; a
// rejected transition leaves the message untouched.
func (r *Router) executorCallback(ctx context.Context, q *tgbotapi.CallbackQuery, user models.User, action string, args []string) error {
	if len(args) == 0 {
		return nil
	}
	taskID := parseID(args[0])
	art := artifactOf(q.Message)

	switch action {
	case render.CbTakeTask:
		if !user.Known() {
			registered, err := r.registerExecutor(ctx, user)
			if err != nil {
				return err
			}
			user = registered
		}

		task, err := r.api.TakeTask(ctx, taskID, user.ID)
		if err != nil {
			r.logger.Info("take rejected", "task_id", taskID, "user_id", user.ID, "error", err)
			return nil
		}

		if err := r.transport.Edit(ctx, art, domain.Outbound{
			Text:      r.messages.Format("task.taken", q.Message.Text, user.Name),
			Formatted: true,
			Keyboard:  render.TakenTaskKeyboard(taskID),
		}); err != nil {
			r.logger.Warn("task message edit failed", "task_id", taskID, "error", err)
		}
		r.notifyCreator(ctx, task.CreatedBy, "notify.taken", taskID, user.ID, user.Name)
		return nil

	case render.CbCancelExecute:
		task, err := r.api.CancelTask(ctx, taskID, user.ID, "")
		if err != nil {
			r.logger.Info("drop rejected", "task_id", taskID, "user_id", user.ID, "error", err)
			return nil
		}

		if err := r.transport.Edit(ctx, art, domain.Outbound{
			Text:      task.TaskMessage,
			Formatted: true,
			Keyboard:  render.TakeTaskKeyboard(taskID),
		}); err != nil {
			r.logger.Warn("task message edit failed", "task_id", taskID, "error", err)
		}
		r.notifyCreator(ctx, task.CreatedBy, "notify.cancelled", taskID)
		return nil

	case render.CbCompleteTask:
		task, err := r.api.CompleteTask(ctx, taskID, user.ID, "")
		if err != nil {
			r.logger.Info("complete rejected", "task_id", taskID, "user_id", user.ID, "error", err)
			return nil
		}

		if err := r.transport.Edit(ctx, art, domain.Outbound{
			Text:      r.messages.Format("task.completed", q.Message.Text),
			Formatted: true,
		}); err != nil {
			r.logger.Warn("task message edit failed", "task_id", taskID, "error", err)
		}
		r.notifyCreator(ctx, task.CreatedBy, "notify.completed", taskID)
		return nil
	}
	return nil
}

// registerExecutor self-registers a group member who pressed a task
// button before ever talking to the bot.
func (r *Router) registerExecutor(ctx context.Context, user models.User) (models.User, error) {
	record, err := r.api.RegisterUser(ctx, user.ID, user.Name, string(models.RoleExecutor), user.Username)
	if err != nil {
		return user, err
	}
	r.classifier.Invalidate(user.ID)
	user.Role = models.ParseRole(record.Type)
	return user, nil
}

// notifyCreator pings the task's creator in their private chat. The
// creator may have blocked the bot; notification failures are logged,
// never propagated.
func (r *Router) notifyCreator(ctx context.Context, creatorID int64, key string, args ...any) {
	if creatorID == 0 {
		return
	}
	if _, err := r.transport.Send(ctx, creatorID, domain.Outbound{
		Text:      r.messages.Format(key, args...),
		Formatted: true,
	}); err != nil {
		r.logger.Warn("creator notification failed", "creator_id", creatorID, "error", err)
	}
}
