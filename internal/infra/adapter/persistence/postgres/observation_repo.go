package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notice-dispatch/internal/domain/entity"
	"notice-dispatch/internal/repository"
)

type ObservationRepo struct{ db *sql.DB }

func NewObservationRepo(db *sql.DB) repository.ObservationRepository {
	return &ObservationRepo{db: db}
}

const observationColumns = `id, content_type, object_id, notice_type_id, observer_id, signal, message_template, added`

func scanObservation(s interface{ Scan(...any) error }) (*entity.Observation, error) {
	var o entity.Observation
	if err := s.Scan(&o.ID, &o.ContentType, &o.ObjectID, &o.NoticeTypeID,
		&o.ObserverID, &o.SignalName, &o.MessageTemplate, &o.Added); err != nil {
		return nil, err
	}
	return &o, nil
}

func (repo *ObservationRepo) Create(ctx context.Context, o *entity.Observation) error {
	const query = `
INSERT INTO observed_items (content_type, object_id, notice_type_id, observer_id, signal, message_template, added)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (content_type, object_id, observer_id, signal) DO NOTHING
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		o.ContentType, o.ObjectID, o.NoticeTypeID, o.ObserverID,
		o.SignalName, o.MessageTemplate, o.Added,
	).Scan(&o.ID)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := repo.Find(ctx, o.ContentType, o.ObjectID, o.ObserverID, o.SignalName)
		if err != nil {
			return fmt.Errorf("Create: %w", err)
		}
		if existing == nil {
			return fmt.Errorf("Create: conflicting observation vanished: %w", entity.ErrNotFound)
		}
		*o = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ObservationRepo) Find(ctx context.Context, contentType string, objectID, observerID int64, signal string) (*entity.Observation, error) {
	const query = `
SELECT ` + observationColumns + `
FROM observed_items
WHERE content_type = $1 AND object_id = $2 AND observer_id = $3 AND signal = $4
LIMIT 1`
	o, err := scanObservation(repo.db.QueryRowContext(ctx, query, contentType, objectID, observerID, signal))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Find: %w", err)
	}
	return o, nil
}

func (repo *ObservationRepo) ListFor(ctx context.Context, contentType string, objectID int64, signal string) ([]*entity.Observation, error) {
	const query = `
SELECT ` + observationColumns + `
FROM observed_items
WHERE content_type = $1 AND object_id = $2 AND signal = $3
ORDER BY added DESC, id DESC`
	rows, err := repo.db.QueryContext(ctx, query, contentType, objectID, signal)
	if err != nil {
		return nil, fmt.Errorf("ListFor: %w", err)
	}
	defer func() { _ = rows.Close() }()

	observations := make([]*entity.Observation, 0, 16)
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("ListFor: Scan: %w", err)
		}
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

func (repo *ObservationRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM observed_items WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}
