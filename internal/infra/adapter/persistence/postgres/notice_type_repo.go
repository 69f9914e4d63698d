package postgres

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

const noticeTypeColumns = `id, label, display, description, default_sensitivity`

func scanNoticeType(s interface{ Scan(...any) error }) (*entity.NoticeType, error) {
	var nt entity.NoticeType
	if err := s.Scan(&nt.ID, &nt.Label, &nt.Display, &nt.Description, &nt.Default); err != nil {
		return nil, err
	}
	return &nt, nil
}

func (repo *NoticeTypeRepo) Get(ctx context.Context, id int64) (*entity.NoticeType, error) {
	const query = `SELECT ` + noticeTypeColumns + ` FROM notice_types WHERE id = $1 LIMIT 1`
	nt, err := scanNoticeType(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return nt, nil
}

func (repo *NoticeTypeRepo) GetByLabel(ctx context.Context, label string) (*entity.NoticeType, error) {
	const query = `SELECT ` + noticeTypeColumns + ` FROM notice_types WHERE label = $1 LIMIT 1`
	nt, err := scanNoticeType(repo.db.QueryRowContext(ctx, query, label))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByLabel: %w", err)
	}
	return nt, nil
}

func (repo *NoticeTypeRepo) List(ctx context.Context) ([]*entity.NoticeType, error) {
	const query = `SELECT ` + noticeTypeColumns + ` FROM notice_types ORDER BY label ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	types := make([]*entity.NoticeType, 0, 32)
	for rows.Next() {
		nt, err := scanNoticeType(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		types = append(types, nt)
	}
	return types, rows.Err()
}

func (repo *NoticeTypeRepo) Create(ctx context.Context, nt *entity.NoticeType) error {
	const query = `
INSERT INTO notice_types (label, display, description, default_sensitivity)
VALUES ($1, $2, $3, $4)
RETURNING id`
	if err := repo.db.QueryRowContext(ctx, query,
		nt.Label, nt.Display, nt.Description, nt.Default,
	).Scan(&nt.ID); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *NoticeTypeRepo) Update(ctx context.Context, nt *entity.NoticeType) error {
	const query = `
UPDATE notice_types SET
       display             = $1,
       description         = $2,
       default_sensitivity = $3
WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, query, nt.Display, nt.Description, nt.Default, nt.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}
