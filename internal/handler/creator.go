package handler

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskbot/internal/domain"
	"taskbot/internal/domain/models"
	"taskbot/internal/render"
	"taskbot/internal/service/conversation"
	"taskbot/internal/taskapi"
)

// intakeMessage feeds one creator message into the draft. Media-group
// members go through the aggregator so the whole album lands as one
// burst; everything else hits the controller directly.
func (r *Router) intakeMessage(ctx context.Context, msg *tgbotapi.Message) error {
	convID := msg.Chat.ID
	origin := artifactOf(msg)
	item, hasMedia := contentFrom(msg)

	if msg.MediaGroupID != "" && hasMedia {
		r.ctrl.TrackOrigin(convID, origin)
		r.agg.Ingest(msg.MediaGroupID, convID, r.ctrl.CurrentEpoch(convID), item, msg.MessageID, msg.Caption)
		return nil
	}

	in := conversation.Intake{ConversationID: convID, Origin: origin}
	if hasMedia {
		in.Items = []models.ContentItem{item}
		in.Text = msg.Caption
	} else {
		in.Text = msg.Text
	}
	if in.Text == "" && len(in.Items) == 0 {
		return nil
	}

	err := r.ctrl.Ingest(ctx, in)
	if errors.Is(err, domain.ErrSubmitInFlight) {
		r.say(ctx, convID, "submit.in_flight")
		return nil
	}
	return err
}

func (r *Router) creatorCallback(ctx context.Context, q *tgbotapi.CallbackQuery, user models.User, action string, args []string) error {
	convID := q.Message.Chat.ID

	switch action {
	case render.CbCheckTask:
		err := r.ctrl.Review(ctx, convID)
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			r.say(ctx, convID, "review.need_text")
			return nil
		case errors.Is(err, domain.ErrSubmitInFlight):
			r.say(ctx, convID, "submit.in_flight")
			return nil
		}
		return err

	case render.CbCancelTask:
		err := r.ctrl.Cancel(ctx, convID)
		if errors.Is(err, domain.ErrSubmitInFlight) {
			r.say(ctx, convID, "submit.in_flight")
			return nil
		}
		return err

	case render.CbGroupList:
		// Picking a target implies reviewing; the draft preview is
		// rendered so the creator sees exactly what will be published.
		err := r.ctrl.Review(ctx, convID)
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			r.say(ctx, convID, "review.need_text")
			return nil
		case errors.Is(err, domain.ErrSubmitInFlight):
			r.say(ctx, convID, "submit.in_flight")
			return nil
		case err != nil:
			return err
		}
		return r.showGroupChooser(ctx, convID, user)

	case render.CbSendTask:
		if len(args) == 0 {
			return nil
		}
		return r.submit(ctx, convID, parseID(args[0]), user)

	case render.CbCreatorKb:
		r.ctrl.ShowStatus(ctx, convID)
		return nil
	}
	return nil
}

// showGroupChooser lists the chats this creator may post into.
// Administrators see every active group.
func (r *Router) showGroupChooser(ctx context.Context, convID int64, user models.User) error {
	var (
		groups []taskapi.Group
		err    error
	)
	if isAdmin(user) {
		groups, err = r.api.ActiveGroups(ctx)
	} else {
		groups, err = r.api.CreatorGroups(ctx, user.ID)
	}
	if err != nil {
		r.say(ctx, convID, "error.generic")
		return err
	}
	if len(groups) == 0 {
		r.say(ctx, convID, "submit.no_groups")
		return nil
	}

	art, err := r.transport.Send(ctx, convID, domain.Outbound{
		Text:     r.messages.Format("submit.pick_group"),
		Keyboard: render.GroupChooser(groups),
	})
	if err != nil {
		return err
	}
	r.ctrl.TrackOrigin(convID, art)
	return nil
}

func (r *Router) submit(ctx context.Context, convID, groupID int64, user models.User) error {
	result, err := r.ctrl.Submit(ctx, convID, groupID, user.ID)

	var verr *domain.ValidationError
	var cerr *domain.CommitError
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSubmitInFlight):
		r.say(ctx, convID, "submit.in_flight")
		return nil
	case errors.As(err, &verr):
		r.say(ctx, convID, "review.need_text")
		return nil
	case errors.As(err, &cerr):
		r.say(ctx, convID, "submit.failed")
		return nil
	default:
		return err
	}

	if failed := result.FailedAttachments; failed > 0 {
		r.say(ctx, convID, "submit.partial", result.TaskID, failed)
		return nil
	}
	r.say(ctx, convID, "submit.sent", result.TaskID)
	return nil
}

// contentFrom extracts the attachment carried by a message. Photos come
// in multiple resolutions; the last entry is the largest.
func contentFrom(msg *tgbotapi.Message) (models.ContentItem, bool) {
	switch {
	case len(msg.Photo) > 0:
		return models.ContentItem{
			OriginMessageID: msg.MessageID,
			ContentRef:      msg.Photo[len(msg.Photo)-1].FileID,
			Kind:            models.ContentPhoto,
		}, true
	case msg.Video != nil:
		return models.ContentItem{
			OriginMessageID: msg.MessageID,
			ContentRef:      msg.Video.FileID,
			Kind:            models.ContentVideo,
			FileName:        msg.Video.FileName,
		}, true
	case msg.Document != nil:
		return models.ContentItem{
			OriginMessageID: msg.MessageID,
			ContentRef:      msg.Document.FileID,
			Kind:            models.ContentDocument,
			FileName:        msg.Document.FileName,
		}, true
	}
	return models.ContentItem{}, false
}
