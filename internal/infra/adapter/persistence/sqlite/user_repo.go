package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
)

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) repository.UserRepository {
	return &UserRepo{db: db}
}

func (repo *UserRepo) Get(ctx context.Context, id int64) (*entity.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`
	u, err := scanUser(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return u, nil
}

func (repo *UserRepo) ListByIDs(ctx context.Context, ids []int64) ([]*entity.User, error) {
	if len(ids) == 0 {
		return []*entity.User{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (?` +
		strings.Repeat(", ?", len(ids)-1) + `) ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListByIDs: %w", err)
	}
	users, err := collect(rows, scanUser)
	if err != nil {
		return nil, fmt.Errorf("ListByIDs: %w", err)
	}
	return users, nil
}

func (repo *UserRepo) ListIDs(ctx context.Context, filter repository.UserFilter) ([]int64, error) {
	const query = `
SELECT id FROM users
WHERE (? OR is_active = 1)
AND (NOT ? OR is_superuser = 1)
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query, filter.IncludeInactive, filter.SuperusersOnly)
	if err != nil {
		return nil, fmt.Errorf("ListIDs: %w", err)
	}
	ids, err := collect(rows, func(s scanner) (int64, error) {
		var id int64
		err := s.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("ListIDs: %w", err)
	}
	return ids, nil
}

// Create inserts a user. Accounts belong to the host application; this
// exists for seeding and tests.
func (repo *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const query = `
INSERT INTO users (username, email, locale, slack_user_id, is_active, is_superuser)
VALUES (?, ?, ?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query,
		u.Username, u.Email, u.Locale, u.SlackUserID, u.IsActive, u.IsSuperuser)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("Create: LastInsertId: %w", err)
	}
	return nil
}

// Delete removes a user and, through foreign keys, the user's notices and settings.
func (repo *UserRepo) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
