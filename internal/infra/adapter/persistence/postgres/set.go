package postgres

import (
	"database/sql"

	"notice-dispatch/internal/repository"
)

// NewSet returns every repository backed by db.
func NewSet(db *sql.DB) repository.Set {
	return repository.Set{
		Users:        NewUserRepo(db),
		NoticeTypes:  NewNoticeTypeRepo(db),
		Settings:     NewNoticeSettingRepo(db),
		Notices:      NewNoticeRepo(db),
		Batches:      NewQueueBatchRepo(db),
		Observations: NewObservationRepo(db),
	}
}
