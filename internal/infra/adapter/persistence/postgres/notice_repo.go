package postgres

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

const noticeColumns = `id, user_id, sender_id, message, notice_type_id, added, unseen, archived, on_site`

func scanNotice(s interface{ Scan(...any) error }) (*entity.Notice, error) {
	var n entity.Notice
	var sender sql.NullInt64
	if err := s.Scan(&n.ID, &n.UserID, &sender, &n.Message, &n.NoticeTypeID,
		&n.Added, &n.Unseen, &n.Archived, &n.OnSite); err != nil {
		return nil, err
	}
	if sender.Valid {
		n.SenderID = &sender.Int64
	}
	return &n, nil
}

func (repo *NoticeRepo) Create(ctx context.Context, n *entity.Notice) error {
	const query = `
INSERT INTO notices (user_id, sender_id, message, notice_type_id, added, unseen, archived, on_site)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	if err := repo.db.QueryRowContext(ctx, query,
		n.UserID, n.SenderID, n.Message, n.NoticeTypeID,
		n.Added, n.Unseen, n.Archived, n.OnSite,
	).Scan(&n.ID); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *NoticeRepo) Get(ctx context.Context, id int64) (*entity.Notice, error) {
	const query = `SELECT ` + noticeColumns + ` FROM notices WHERE id = $1 LIMIT 1`
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
	const query = `
SELECT ` + noticeColumns + `
FROM notices
WHERE user_id = $1
AND ($2::boolean OR archived = FALSE)
ORDER BY added DESC, id DESC`
	return repo.list(ctx, "ListForUser", query, userID, includeArchived)
}

func (repo *NoticeRepo) ListAll(ctx context.Context, includeArchived bool) ([]*entity.Notice, error) {
	const query = `
SELECT ` + noticeColumns + `
FROM notices
WHERE ($1::boolean OR archived = FALSE)
ORDER BY added DESC, id DESC`
	return repo.list(ctx, "ListAll", query, includeArchived)
}

func (repo *NoticeRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Notice, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	notices := make([]*entity.Notice, 0, 50)
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: Scan: %w", op, err)
		}
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

func (repo *NoticeRepo) CountUnseen(ctx context.Context, userID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM notices WHERE user_id = $1 AND unseen = TRUE`
	var count int64
	if err := repo.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountUnseen: %w", err)
	}
	return count, nil
}

func (repo *NoticeRepo) MarkSeen(ctx context.Context, id int64) (bool, error) {
	const query = `UPDATE notices SET unseen = FALSE WHERE id = $1 AND unseen = TRUE`
	res, err := repo.db.ExecContext(ctx, query, id)
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
	const query = `UPDATE notices SET unseen = FALSE WHERE user_id = $1 AND unseen = TRUE`
	res, err := repo.db.ExecContext(ctx, query, userID)
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
	const query = `UPDATE notices SET archived = TRUE WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Archive: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Archive: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *NoticeRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM notices WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}
