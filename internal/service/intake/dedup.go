// Package intake assembles unordered bursts of inbound content into
// deduplicated, completed batches before the conversation layer sees them.
package intake

import "taskbot/internal/domain/models"

// Merge folds incoming items into the existing collection, dropping
// repeats by content ref. The merged slice preserves existing order and
// appends first-seen incoming items in arrival order. When an incoming
// item repeats a ref already present, the later item wins: its kind and
// origin metadata overwrite the stored entry in place (caption-carrying
// edits re-deliver the same ref with fresher metadata).
//
// The duplicate count satisfies
// len(existing) + len(incoming) - len(merged).
func Merge(existing, incoming []models.ContentItem) ([]models.ContentItem, int) {
	merged := make([]models.ContentItem, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, it := range merged {
		index[it.ContentRef] = i
	}

	duplicates := 0
	for _, it := range incoming {
		if at, ok := index[it.ContentRef]; ok {
			merged[at] = it
			duplicates++
			continue
		}
		index[it.ContentRef] = len(merged)
		merged = append(merged, it)
	}
	return merged, duplicates
}
