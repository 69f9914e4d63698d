package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
)

type QueueBatchRepo struct{ db *sql.DB }

func NewQueueBatchRepo(db *sql.DB) repository.QueueBatchRepository {
	return &QueueBatchRepo{db: db}
}

func (repo *QueueBatchRepo) Create(ctx context.Context, b *entity.QueueBatch) error {
	const query = `
INSERT INTO notice_queue_batches (payload, created_at)
VALUES ($1, $2)
RETURNING id`
	if err := repo.db.QueryRowContext(ctx, query, b.Payload, b.CreatedAt).Scan(&b.ID); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// List returns batches in store order (id ascending). Callers must not rely
// on cross-batch ordering.
func (repo *QueueBatchRepo) List(ctx context.Context) ([]*entity.QueueBatch, error) {
	const query = `SELECT id, payload, created_at FROM notice_queue_batches ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	batches := make([]*entity.QueueBatch, 0, 16)
	for rows.Next() {
		var b entity.QueueBatch
		if err := rows.Scan(&b.ID, &b.Payload, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		batches = append(batches, &b)
	}
	return batches, rows.Err()
}

func (repo *QueueBatchRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM notice_queue_batches WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}
