package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
)

type NoticeTypeRepo struct{ db *sql.DB }

func NewNoticeTypeRepo(db *sql.DB) repository.NoticeTypeRepository {
	return &NoticeTypeRepo{db: db}
}

func (repo *NoticeTypeRepo) Get(ctx context.Context, id int64) (*entity.NoticeType, error) {
	const query = `SELECT ` + noticeTypeColumns + ` FROM notice_types WHERE id = ? LIMIT 1`
	return repo.one(ctx, "Get", query, id)
}

func (repo *NoticeTypeRepo) GetByLabel(ctx context.Context, label string) (*entity.NoticeType, error) {
	const query = `SELECT ` + noticeTypeColumns + ` FROM notice_types WHERE label = ? LIMIT 1`
	return repo.one(ctx, "GetByLabel", query, label)
}

func (repo *NoticeTypeRepo) one(ctx context.Context, op, query string, arg any) (*entity.NoticeType, error) {
	nt, err := scanNoticeType(repo.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nt, nil
}

func (repo *NoticeTypeRepo) List(ctx context.Context) ([]*entity.NoticeType, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT `+noticeTypeColumns+` FROM notice_types ORDER BY label ASC`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	types, err := collect(rows, scanNoticeType)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return types, nil
}

func (repo *NoticeTypeRepo) Create(ctx context.Context, nt *entity.NoticeType) error {
	const query = `
INSERT INTO notice_types (label, display, description, default_sensitivity)
VALUES (?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query, nt.Label, nt.Display, nt.Description, nt.Default)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	if nt.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("Create: LastInsertId: %w", err)
	}
	return nil
}

func (repo *NoticeTypeRepo) Update(ctx context.Context, nt *entity.NoticeType) error {
	const query = `
UPDATE notice_types SET display = ?, description = ?, default_sensitivity = ?
WHERE id = ?`
	res, err := repo.db.ExecContext(ctx, query, nt.Display, nt.Description, nt.Default, nt.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}
