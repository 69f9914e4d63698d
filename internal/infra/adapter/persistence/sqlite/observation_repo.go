package sqlite

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

func (repo *ObservationRepo) Create(ctx context.Context, o *entity.Observation) error {
	const query = `
INSERT OR IGNORE INTO observed_items (content_type, object_id, notice_type_id, observer_id, signal, message_template, added)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := repo.db.ExecContext(ctx, query,
		o.ContentType, o.ObjectID, o.NoticeTypeID, o.ObserverID,
		o.SignalName, o.MessageTemplate, o.Added.UTC())
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("Create: RowsAffected: %w", err)
	} else if n == 0 {
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
	if o.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("Create: LastInsertId: %w", err)
	}
	return nil
}

func (repo *ObservationRepo) Find(ctx context.Context, contentType string, objectID, observerID int64, signal string) (*entity.Observation, error) {
	const query = `SELECT ` + observationColumns + `
FROM observed_items
WHERE content_type = ? AND object_id = ? AND observer_id = ? AND signal = ?
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
	const query = `SELECT ` + observationColumns + `
FROM observed_items
WHERE content_type = ? AND object_id = ? AND signal = ?
ORDER BY added DESC, id DESC`
	rows, err := repo.db.QueryContext(ctx, query, contentType, objectID, signal)
	if err != nil {
		return nil, fmt.Errorf("ListFor: %w", err)
	}
	obs, err := collect(rows, scanObservation)
	if err != nil {
		return nil, fmt.Errorf("ListFor: %w", err)
	}
	return obs, nil
}

func (repo *ObservationRepo) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM observed_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
