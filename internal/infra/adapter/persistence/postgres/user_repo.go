package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
)

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) repository.UserRepository {
	return &UserRepo{db: db}
}

const userColumns = `id, username, email, locale, slack_user_id, is_active, is_superuser`

func scanUser(s interface{ Scan(...any) error }) (*entity.User, error) {
	var u entity.User
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.Locale, &u.SlackUserID, &u.IsActive, &u.IsSuperuser); err != nil {
		return nil, err
	}
	return &u, nil
}

func (repo *UserRepo) Get(ctx context.Context, id int64) (*entity.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
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
	in, args := inClause(1, ids)
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + in + `) ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListByIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := make([]*entity.User, 0, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByIDs: Scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (repo *UserRepo) ListIDs(ctx context.Context, filter repository.UserFilter) ([]int64, error) {
	const query = `
SELECT id FROM users
WHERE ($1::boolean OR is_active = TRUE)
AND (NOT $2::boolean OR is_superuser = TRUE)
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query, filter.IncludeInactive, filter.SuperusersOnly)
	if err != nil {
		return nil, fmt.Errorf("ListIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]int64, 0, 64)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListIDs: Scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
