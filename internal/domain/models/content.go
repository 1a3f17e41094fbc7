package models

// ContentKind classifies an attachment by how the transport delivered it.
type ContentKind string

const (
	ContentPhoto    ContentKind = "photo"
	ContentVideo    ContentKind = "video"
	ContentDocument ContentKind = "document"
)

// ContentItem is a single attachment collected into a draft.
//
// Identity for deduplication is ContentRef alone: two items carrying the
// same ContentRef are the same attachment no matter which inbound message
// delivered them. OriginMessageID is kept only for tracing.
type ContentItem struct {
	OriginMessageID int
	ContentRef      string // provider file handle, stable across re-sends
	Kind            ContentKind
	FileName        string
}
