package entity

import "time"

// DefaultSignal is the signal name used when observing without naming one.
const DefaultSignal = "post_save"

// Observation is a watch record: ObserverID wants NoticeTypeID notices when
// SignalName fires for the object identified by (ContentType, ObjectID).
type Observation struct {
	ID              int64
	ContentType     string
	ObjectID        int64
	NoticeTypeID    int64
	ObserverID      int64
	SignalName      string
	MessageTemplate string
	Added           time.Time
}
