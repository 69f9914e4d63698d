package repository

import (
	"context"

	"notice-dispatch/internal/domain/entity"
)

// UserRepository reads accounts owned by the surrounding application.
// Get returns (nil, nil) when the user does not exist.
type UserRepository interface {
	Get(ctx context.Context, id int64) (*entity.User, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*entity.User, error)
	// ListIDs returns only identifiers, so callers can queue large audiences
	// without materializing full user rows.
	ListIDs(ctx context.Context, filter UserFilter) ([]int64, error)
}

// UserFilter narrows ListIDs. Zero value selects every active user.
type UserFilter struct {
	IncludeInactive bool
	SuperusersOnly  bool
}

// Set groups the repositories one storage backend provides.
type Set struct {
	Users        UserRepository
	NoticeTypes  NoticeTypeRepository
	Settings     NoticeSettingRepository
	Notices      NoticeRepository
	Batches      QueueBatchRepository
	Observations ObservationRepository
}
