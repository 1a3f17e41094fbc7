// Package middleware wraps the update-handling pipeline the way an HTTP
// middleware chain wraps handlers: recovery outermost, then identity
// enrichment, then the router.
package middleware

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskbot/internal/domain/models"
)

// Handler processes one inbound update.
type Handler func(ctx context.Context, upd *tgbotapi.Update) error

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Chain applies middlewares so the first listed runs outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type contextKey int

const (
	userKey contextKey = iota
	loggerKey
)

// UserFrom returns the classified user attached by WithUser.
func UserFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

// LoggerFrom returns the per-update logger, or the default logger when
// the update never passed through WithCorrelation.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
