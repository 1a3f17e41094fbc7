package middleware

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"taskbot/internal/domain"
)

// WithCorrelation attaches a per-update logger carrying the update id and
// a correlation id, retrievable with LoggerFrom.
func WithCorrelation(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, upd *tgbotapi.Update) error {
			updLogger := logger.With(
				"update_id", upd.UpdateID,
				"correlation_id", uuid.NewString(),
			)
			return next(context.WithValue(ctx, loggerKey, updLogger), upd)
		}
	}
}

// WithUser classifies the sender and attaches the result to the context.
// Banned users are dropped here; everyone else proceeds, including
// unknown users (handlers decide what unauthenticated users may do).
func WithUser(classifier domain.Classifier) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, upd *tgbotapi.Update) error {
			sender := upd.SentFrom()
			if sender == nil {
				return next(ctx, upd)
			}

			user := classifier.Classify(ctx, sender.ID)
			if user.Banned {
				LoggerFrom(ctx).Info("dropping update from banned user",
					"user_id", sender.ID,
				)
				return nil
			}

			// Prefer the live Telegram profile for display fields.
			if user.Name == "" {
				user.Name = strings.TrimSpace(sender.FirstName + " " + sender.LastName)
			}
			if user.Username == "" {
				user.Username = sender.UserName
			}

			return next(context.WithValue(ctx, userKey, user), upd)
		}
	}
}
