package entity

import "time"

// Notice is the persisted history record of a notification shown to a user.
type Notice struct {
	ID           int64
	UserID       int64
	SenderID     *int64
	Message      string
	NoticeTypeID int64
	Added        time.Time
	Unseen       bool
	Archived     bool
	OnSite       bool
}

// NewNotice returns a notice with the lifecycle defaults applied.
func NewNotice(userID int64, noticeTypeID int64, message string, now time.Time) *Notice {
	return &Notice{
		UserID:       userID,
		NoticeTypeID: noticeTypeID,
		Message:      message,
		Added:        now,
		Unseen:       true,
		OnSite:       true,
	}
}

// IsUnseen reports whether the notice had not been seen yet and marks it seen.
// Only the first call returns true; callers persist the change.
func (n *Notice) IsUnseen() bool {
	unseen := n.Unseen
	if unseen {
		n.Unseen = false
	}
	return unseen
}

// Archive marks the notice archived. Archiving is permanent.
func (n *Notice) Archive() {
	n.Archived = true
}
