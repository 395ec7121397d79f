package domain

import "time"

// UpdateTask is a transient unit of incremental embedding work. It lives only
// between a trigger (change event or backfill scan) and the embedding write.
type UpdateTask struct {
	DocumentID string
	Collection string
	TypeName   string
	EnqueuedAt time.Time
	Reason     string
}

// Task reasons.
const (
	ReasonChangeEvent = "change_event"
	ReasonBackfill    = "backfill"
)

// WatchCursor is a per-collection change feed position. Resume is best-effort:
// the token is advanced after an event is processed, not before.
type WatchCursor struct {
	Collection  string
	ResumeToken []byte
}
