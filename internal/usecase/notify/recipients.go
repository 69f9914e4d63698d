package notify

import (
	"context"
	"fmt"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
)

// Recipients is the audience of one call: either users already loaded or a
// query resolved on demand.
type Recipients interface {
	// IDs returns the recipient identifiers without loading full users
	// when the source allows it.
	IDs(ctx context.Context) ([]int64, error)
	// Users returns the materialized recipients.
	Users(ctx context.Context) ([]*entity.User, error)
}

type userList []*entity.User

// Users wraps loaded users. Nil entries are ignored.
func Users(users ...*entity.User) Recipients {
	out := make(userList, 0, len(users))
	for _, u := range users {
		if u != nil {
			out = append(out, u)
		}
	}
	return out
}

func (l userList) IDs(context.Context) ([]int64, error) {
	ids := make([]int64, len(l))
	for i, u := range l {
		ids[i] = u.ID
	}
	return ids, nil
}

func (l userList) Users(context.Context) ([]*entity.User, error) {
	return l, nil
}

type userQuery struct {
	repo   repository.UserRepository
	filter repository.UserFilter
}

// UserQuery selects recipients lazily. Queueing pulls only identifiers.
func UserQuery(repo repository.UserRepository, filter repository.UserFilter) Recipients {
	return &userQuery{repo: repo, filter: filter}
}

func (q *userQuery) IDs(ctx context.Context) ([]int64, error) {
	ids, err := q.repo.ListIDs(ctx, q.filter)
	if err != nil {
		return nil, fmt.Errorf("list recipient ids: %w", err)
	}
	return ids, nil
}

func (q *userQuery) Users(ctx context.Context) ([]*entity.User, error) {
	ids, err := q.IDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := q.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	return users, nil
}
