package sqlite

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

func (repo *NoticeSettingRepo) GetOrCreate(ctx context.Context, userID, noticeTypeID int64, medium string, defaultSend bool) (*entity.NoticeSetting, error) {
	const insert = `
INSERT OR IGNORE INTO notice_settings (user_id, notice_type_id, medium, send)
VALUES (?, ?, ?, ?)`
	if _, err := repo.db.ExecContext(ctx, insert, userID, noticeTypeID, medium, defaultSend); err != nil {
		return nil, fmt.Errorf("GetOrCreate: insert: %w", err)
	}

	const query = `SELECT ` + settingColumns + `
FROM notice_settings
WHERE user_id = ? AND notice_type_id = ? AND medium = ?`
	s, err := scanSetting(repo.db.QueryRowContext(ctx, query, userID, noticeTypeID, medium))
	if err != nil {
		return nil, fmt.Errorf("GetOrCreate: select: %w", err)
	}
	return s, nil
}

func (repo *NoticeSettingRepo) Update(ctx context.Context, s *entity.NoticeSetting) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE notice_settings SET send = ? WHERE id = ?`, s.Send, s.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

func (repo *NoticeSettingRepo) ListForUser(ctx context.Context, userID int64) ([]*entity.NoticeSetting, error) {
	const query = `SELECT ` + settingColumns + `
FROM notice_settings
WHERE user_id = ?
ORDER BY notice_type_id ASC, medium ASC`
	rows, err := repo.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}
	settings, err := collect(rows, scanSetting)
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}
	return settings, nil
}
