package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Recovery recovers from panics in downstream handlers so one broken
// update cannot take the poller down.
func Recovery(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, upd *tgbotapi.Update) error {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"update_id", upd.UpdateID,
						"stack", string(debug.Stack()),
					)
				}
			}()
			return next(ctx, upd)
		}
	}
}
