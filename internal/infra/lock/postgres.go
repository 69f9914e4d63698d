package lock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"
)

// PostgresProvider uses session-level advisory locks. The lock lives on a
// dedicated connection that is returned to the pool on release.
type PostgresProvider struct {
	db *sql.DB
}

func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// advisoryKey maps a lock name onto the bigint keyspace of pg_advisory_lock.
func advisoryKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

func (p *PostgresProvider) Acquire(ctx context.Context, name string, timeout time.Duration) (Lock, error) {
	key := advisoryKey(name)
	return acquire(ctx, timeout, func(ctx context.Context) (Lock, bool, error) {
		conn, err := p.db.Conn(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("advisory lock: conn: %w", err)
		}
		var ok bool
		if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
			_ = conn.Close()
			return nil, false, fmt.Errorf("advisory lock: %w", err)
		}
		if !ok {
			_ = conn.Close()
			return nil, false, nil
		}
		return &advisoryLock{conn: conn, key: key}, true, nil
	})
}

type advisoryLock struct {
	conn *sql.Conn
	key  int64
}

func (l *advisoryLock) Release(ctx context.Context) error {
	defer func() { _ = l.conn.Close() }()
	if _, err := l.conn.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, l.key); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return nil
}
