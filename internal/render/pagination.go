package render

import "taskbot/internal/domain/models"

const itemsPerPage = 7

// Paginate slices rows down to one page and appends a navigation row.
// Navigation callbacks are "<action>:page:<n>"; pages count from 1.
func Paginate(rows [][]models.Button, action string, page int) *models.Keyboard {
	pages := (len(rows) + itemsPerPage - 1) / itemsPerPage
	if page < 1 {
		page = 1
	}
	if pages > 0 && page > pages {
		page = pages
	}

	start := (page - 1) * itemsPerPage
	end := start + itemsPerPage
	if end > len(rows) {
		end = len(rows)
	}

	kb := &models.Keyboard{}
	if len(rows) == 0 {
		kb.Row(models.Button{Label: "Empty", Data: CbNoop})
		return kb
	}
	kb.Rows = append(kb.Rows, rows[start:end]...)

	if pages > 1 {
		var nav []models.Button
		if page > 1 {
			nav = append(nav, models.Button{Label: "⬅️ prev", Data: cb(action, "page", page-1)})
		}
		if page < pages {
			nav = append(nav, models.Button{Label: "next ➡️", Data: cb(action, "page", page+1)})
		}
		kb.Row(nav...)
	}
	return kb
}
