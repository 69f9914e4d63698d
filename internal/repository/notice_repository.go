package repository

import (
	"context"

	"notice-dispatch/internal/domain/entity"
)

type NoticeTypeRepository interface {
	Get(ctx context.Context, id int64) (*entity.NoticeType, error)
	GetByLabel(ctx context.Context, label string) (*entity.NoticeType, error)
	List(ctx context.Context) ([]*entity.NoticeType, error)
	Create(ctx context.Context, nt *entity.NoticeType) error
	Update(ctx context.Context, nt *entity.NoticeType) error
}

type NoticeSettingRepository interface {
	// GetOrCreate returns the stored setting for the triple, inserting one
	// with send=defaultSend first if none exists. An existing row always wins.
	GetOrCreate(ctx context.Context, userID, noticeTypeID int64, medium string, defaultSend bool) (*entity.NoticeSetting, error)
	Update(ctx context.Context, setting *entity.NoticeSetting) error
	ListForUser(ctx context.Context, userID int64) ([]*entity.NoticeSetting, error)
}

type NoticeRepository interface {
	Create(ctx context.Context, notice *entity.Notice) error
	Get(ctx context.Context, id int64) (*entity.Notice, error)
	// ListForUser returns the user's notices newest first.
	ListForUser(ctx context.Context, userID int64, includeArchived bool) ([]*entity.Notice, error)
	// ListAll returns every user's notices newest first.
	ListAll(ctx context.Context, includeArchived bool) ([]*entity.Notice, error)
	CountUnseen(ctx context.Context, userID int64) (int64, error)
	// MarkSeen flips unseen to false and reports whether this call changed it.
	MarkSeen(ctx context.Context, id int64) (bool, error)
	// MarkAllSeen flips every unseen notice of the user and returns the count.
	MarkAllSeen(ctx context.Context, userID int64) (int64, error)
	Archive(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type QueueBatchRepository interface {
	Create(ctx context.Context, batch *entity.QueueBatch) error
	List(ctx context.Context) ([]*entity.QueueBatch, error)
	Delete(ctx context.Context, id int64) error
}

type ObservationRepository interface {
	// Create inserts obs unless a record with the same content type, object,
	// observer and signal exists; then obs is overwritten with that record.
	Create(ctx context.Context, obs *entity.Observation) error
	// Find returns (nil, nil) when no record matches.
	Find(ctx context.Context, contentType string, objectID, observerID int64, signal string) (*entity.Observation, error)
	ListFor(ctx context.Context, contentType string, objectID int64, signal string) ([]*entity.Observation, error)
	Delete(ctx context.Context, id int64) error
}
