// Package render builds the user-visible texts and inline keyboards.
// Wording comes from the templates registry; layout and callback data
// live here.
package render

import (
	"fmt"
	"strings"

	"taskbot/internal/domain/models"
	"taskbot/internal/templates"
)

// StatusText builds the collecting summary shown after every intake
// update: whether the description arrived, how many attachments of each
// kind are held, and how many duplicates the last burst dropped.
func StatusText(reg *templates.Registry, sess models.Session, duplicates int) string {
	var b strings.Builder

	if sess.DraftText != "" {
		b.WriteString(reg.Format("status.text_received"))
	} else {
		b.WriteString(reg.Format("status.awaiting_text"))
	}

	if len(sess.Items) > 0 {
		b.WriteString(reg.Format("status.attachments", len(sess.Items), kindSummary(sess)))
		if duplicates > 0 {
			b.WriteString(reg.Format("status.duplicates", duplicates))
		}
	} else {
		b.WriteString(reg.Format("status.attachments_none"))
	}

	return b.String()
}

// kindSummary renders "2 photos, 1 video, 3 documents" with absent kinds
// omitted, in a fixed kind order.
func kindSummary(sess models.Session) string {
	counts := sess.CountByKind()
	var parts []string
	for _, kind := range []models.ContentKind{models.ContentPhoto, models.ContentVideo, models.ContentDocument} {
		n := counts[kind]
		if n == 0 {
			continue
		}
		label := string(kind)
		if n != 1 {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, label))
	}
	return strings.Join(parts, ", ")
}

// TaskNumberText renders the "Task #N" line. A draft without an assigned
// id (preview) shows a placeholder.
func TaskNumberText(reg *templates.Registry, taskID int64) string {
	number := "..."
	if taskID != 0 {
		number = fmt.Sprint(taskID)
	}
	return reg.Format("task.number", number)
}

// DraftText renders the draft description block.
func DraftText(reg *templates.Registry, sess models.Session) string {
	text := sess.DraftText
	if text == "" {
		text = reg.Format("task.description_missing")
	}
	return reg.Format("task.description", text)
}
