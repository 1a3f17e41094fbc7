package models

import "time"

// Batch is a burst of content items the transport tagged as logically
// grouped (a Telegram media group). It exists only while open inside the
// aggregator and is destroyed on flush.
type Batch struct {
	ID             string
	ConversationID int64
	Items          []ContentItem
	Caption        string
	FirstSeenAt    time.Time
	HighestSeq     int

	// Epoch is the session epoch observed when the batch was opened. A
	// flush whose epoch no longer matches the session is discarded.
	Epoch int64
}
