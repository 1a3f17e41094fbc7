// Package handler dispatches Telegram updates to the conversation core,
// the executor workflow and the admin surface. Handlers stay thin: parse
// the update, check the caller's role, call a service, render the reply.
package handler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
	"taskbot/internal/middleware"
	"taskbot/internal/render"
	"taskbot/internal/service/access"
	"taskbot/internal/service/conversation"
	"taskbot/internal/service/intake"
	"taskbot/internal/taskapi"
	"taskbot/internal/templates"
	"taskbot/internal/transport/telegram"
)

// Router routes updates by type, command and callback action.
type Router struct {
	transport  *telegram.Transport
	ctrl       *conversation.Controller
	agg        *intake.Aggregator
	api        *taskapi.Client
	classifier *access.Classifier
	messages   *templates.Registry
	logger     *slog.Logger
}

func NewRouter(
	transport *telegram.Transport,
	ctrl *conversation.Controller,
	agg *intake.Aggregator,
	api *taskapi.Client,
	classifier *access.Classifier,
	messages *templates.Registry,
	logger *slog.Logger,
) *Router {
	return &Router{
		transport:  transport,
		ctrl:       ctrl,
		agg:        agg,
		api:        api,
		classifier: classifier,
		messages:   messages,
		logger:     logger,
	}
}

// Handle implements middleware.Handler.
func (r *Router) Handle(ctx context.Context, upd *tgbotapi.Update) error {
	switch {
	case upd.MyChatMember != nil:
		return r.handleChatMember(ctx, upd.MyChatMember)
	case upd.CallbackQuery != nil:
		return r.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		return r.handleMessage(ctx, upd.Message)
	}
	return nil
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.Chat.IsPrivate() {
		return nil
	}

	user, _ := middleware.UserFrom(ctx)
	switch msg.Command() {
	case "start":
		return r.handleStart(ctx, msg, user)
	case "admin":
		if !isAdmin(user) {
			r.say(ctx, msg.Chat.ID, "error.forbidden")
			return nil
		}
		_, err := r.transport.Send(ctx, msg.Chat.ID, domain.Outbound{
			Text:     r.messages.Format("admin.menu"),
			Keyboard: render.AdminMenu(),
		})
		return err
	}

	if !canCreate(user) {
		middleware.LoggerFrom(ctx).Debug("ignoring message from non-creator",
			"user_id", user.ID,
			"role", user.Role,
		)
		return nil
	}
	return r.intakeMessage(ctx, msg)
}

func (r *Router) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.Message == nil {
		r.transport.AnswerCallback(q.ID, "")
		return nil
	}

	parts := strings.Split(q.Data, ":")
	action, args := parts[0], parts[1:]
	user, _ := middleware.UserFrom(ctx)

	if !r.allowed(user, action) {
		r.transport.AnswerCallback(q.ID, r.messages.Format("error.forbidden"))
		return nil
	}
	r.transport.AnswerCallback(q.ID, "")

	switch action {
	case render.CbCheckTask, render.CbCancelTask, render.CbGroupList, render.CbCreatorKb, render.CbSendTask:
		return r.creatorCallback(ctx, q, user, action, args)
	case render.CbTakeTask, render.CbCancelExecute, render.CbCompleteTask:
		return r.executorCallback(ctx, q, user, action, args)
	case render.CbNoop:
		return nil
	default:
		return r.adminCallback(ctx, q, user, action, args)
	}
}

// allowed gates callback actions by role before any handler runs.
func (r *Router) allowed(user models.User, action string) bool {
	switch action {
	case render.CbCheckTask, render.CbCancelTask, render.CbGroupList, render.CbCreatorKb, render.CbSendTask:
		return canCreate(user)
	case render.CbTakeTask, render.CbCancelExecute, render.CbCompleteTask, render.CbNoop:
		// Executor actions self-register unknown users; the backend
		// rejects transitions the caller does not own.
		return true
	default:
		return isAdmin(user)
	}
}

func isAdmin(user models.User) bool {
	return user.Role == models.RoleSuperadmin || user.Role == models.RoleManager
}

func canCreate(user models.User) bool {
	return user.Role == models.RoleCreator || isAdmin(user)
}

// say sends a plain templated message and tracks it with the draft
// chatter so cancel sweeps it away too.
func (r *Router) say(ctx context.Context, chatID int64, key string, args ...any) {
	art, err := r.transport.Send(ctx, chatID, domain.Outbound{
		Text:      r.messages.Format(key, args...),
		Formatted: true,
	})
	if err != nil {
		r.logger.Warn("reply failed", "chat_id", chatID, "error", err)
		return
	}
	r.ctrl.TrackOrigin(chatID, art)
}

func artifactOf(msg *tgbotapi.Message) models.Artifact {
	return models.Artifact{ChatID: msg.Chat.ID, MessageID: msg.MessageID}
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// pageOf extracts the page number from pagination args ("page:N"),
// defaulting to the first page.
func pageOf(args []string) int {
	if len(args) >= 2 && args[0] == "page" {
		if page, err := strconv.Atoi(args[1]); err == nil {
			return page
		}
	}
	return 1
}
