package sqlite

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
	res, err := repo.db.ExecContext(ctx,
		`INSERT INTO notice_queue_batches (payload, created_at) VALUES (?, ?)`,
		b.Payload, b.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("Create: LastInsertId: %w", err)
	}
	return nil
}

func (repo *QueueBatchRepo) List(ctx context.Context) ([]*entity.QueueBatch, error) {
	rows, err := repo.db.QueryContext(ctx,
		`SELECT id, payload, created_at FROM notice_queue_batches ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	batches, err := collect(rows, func(s scanner) (*entity.QueueBatch, error) {
		var b entity.QueueBatch
		if err := s.Scan(&b.ID, &b.Payload, &b.CreatedAt); err != nil {
			return nil, err
		}
		return &b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return batches, nil
}

func (repo *QueueBatchRepo) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM notice_queue_batches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
