package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
)

type NoticeRepo struct{ db *sql.DB }

func NewNoticeRepo(db *sql.DB) repository.NoticeRepository {
	return &NoticeRepo{db: db}
}

func (repo *NoticeRepo) Create(ctx context.Context, n *entity.Notice) error {
	const query = `
INSERT INTO notices (user_id, sender_id, message, notice_type_id, added, unseen, archived, on_site)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query,
		n.UserID, n.SenderID, n.Message, n.NoticeTypeID,
		n.Added.UTC(), n.Unseen, n.Archived, n.OnSite)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	if n.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("Create: LastInsertId: %w", err)
	}
	return nil
}

func (repo *NoticeRepo) Get(ctx context.Context, id int64) (*entity.Notice, error) {
	const query = `SELECT ` + noticeColumns + ` FROM notices WHERE id = ? LIMIT 1`
	n, err := scanNotice(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return n, nil
}

func (repo *NoticeRepo) ListForUser(ctx context.Context, userID int64, includeArchived bool) ([]*entity.Notice, error) {
	const query = `SELECT ` + noticeColumns + `
FROM notices
WHERE user_id = ? AND (? OR archived = 0)
ORDER BY added DESC, id DESC`
	return repo.list(ctx, "ListForUser", query, userID, includeArchived)
}

func (repo *NoticeRepo) ListAll(ctx context.Context, includeArchived bool) ([]*entity.Notice, error) {
	const query = `SELECT ` + noticeColumns + `
FROM notices
WHERE (? OR archived = 0)
ORDER BY added DESC, id DESC`
	return repo.list(ctx, "ListAll", query, includeArchived)
}

func (repo *NoticeRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Notice, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	notices, err := collect(rows, scanNotice)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return notices, nil
}

func (repo *NoticeRepo) CountUnseen(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := repo.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notices WHERE user_id = ? AND unseen = 1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountUnseen: %w", err)
	}
	return count, nil
}

func (repo *NoticeRepo) MarkSeen(ctx context.Context, id int64) (bool, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE notices SET unseen = 0 WHERE id = ? AND unseen = 1`, id)
	if err != nil {
		return false, fmt.Errorf("MarkSeen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("MarkSeen: RowsAffected: %w", err)
	}
	return n == 1, nil
}

func (repo *NoticeRepo) MarkAllSeen(ctx context.Context, userID int64) (int64, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE notices SET unseen = 0 WHERE user_id = ? AND unseen = 1`, userID)
	if err != nil {
		return 0, fmt.Errorf("MarkAllSeen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("MarkAllSeen: RowsAffected: %w", err)
	}
	return n, nil
}

func (repo *NoticeRepo) Archive(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE notices SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("Archive: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("Archive: %w", err)
	}
	return nil
}

func (repo *NoticeRepo) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM notices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
