package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
)

type NoticeSettingRepo struct{ db *sql.DB }

func NewNoticeSettingRepo(db *sql.DB) repository.NoticeSettingRepository {
	return &NoticeSettingRepo{db: db}
}

// GetOrCreate relies on the (user_id, notice_type_id, medium) unique index:
// a concurrent reader that loses the insert race reads the winner's row.
func (repo *NoticeSettingRepo) GetOrCreate(ctx context.Context, userID, noticeTypeID int64, medium string, defaultSend bool) (*entity.NoticeSetting, error) {
	const insert = `
INSERT INTO notice_settings (user_id, notice_type_id, medium, send)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, notice_type_id, medium) DO NOTHING`
	if _, err := repo.db.ExecContext(ctx, insert, userID, noticeTypeID, medium, defaultSend); err != nil {
		return nil, fmt.Errorf("GetOrCreate: insert: %w", err)
	}

	const query = `
SELECT id, user_id, notice_type_id, medium, send
FROM notice_settings
WHERE user_id = $1 AND notice_type_id = $2 AND medium = $3`
	var s entity.NoticeSetting
	if err := repo.db.QueryRowContext(ctx, query, userID, noticeTypeID, medium).Scan(
		&s.ID, &s.UserID, &s.NoticeTypeID, &s.Medium, &s.Send,
	); err != nil {
		return nil, fmt.Errorf("GetOrCreate: select: %w", err)
	}
	return &s, nil
}

func (repo *NoticeSettingRepo) Update(ctx context.Context, s *entity.NoticeSetting) error {
	const query = `UPDATE notice_settings SET send = $1 WHERE id = $2`
	res, err := repo.db.ExecContext(ctx, query, s.Send, s.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *NoticeSettingRepo) ListForUser(ctx context.Context, userID int64) ([]*entity.NoticeSetting, error) {
	const query = `
SELECT id, user_id, notice_type_id, medium, send
FROM notice_settings
WHERE user_id = $1
ORDER BY notice_type_id ASC, medium ASC`
	rows, err := repo.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}
	defer func() { _ = rows.Close() }()

	settings := make([]*entity.NoticeSetting, 0, 16)
	for rows.Next() {
		var s entity.NoticeSetting
		if err := rows.Scan(&s.ID, &s.UserID, &s.NoticeTypeID, &s.Medium, &s.Send); err != nil {
			return nil, fmt.Errorf("ListForUser: Scan: %w", err)
		}
		settings = append(settings, &s)
	}
	return settings, rows.Err()
}
