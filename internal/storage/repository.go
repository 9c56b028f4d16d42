package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertReadingSQL = `INSERT INTO recycle_readings (
        observed_at,
        netuid,
        cost_tao,
        band,
        low,
        super_low,
        notifications
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id, created_at;`

	listReadingsBetweenSQL = `SELECT
        id,
        observed_at,
        netuid,
        cost_tao,
        band,
        low,
        super_low,
        notifications,
        created_at
    FROM recycle_readings
    WHERE netuid = $1
      AND observed_at >= $2
      AND observed_at < $3
    ORDER BY observed_at;`

	listRecentReadingsSQL = `SELECT
        id,
        observed_at,
        netuid,
        cost_tao,
        band,
        low,
        super_low,
        notifications,
        created_at
    FROM recycle_readings
    WHERE netuid = $1
    ORDER BY observed_at DESC
    LIMIT $2;`

	countReadingsSQL = `SELECT COUNT(*) FROM recycle_readings WHERE netuid = $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ReadingStore defines operations for reading history.
type ReadingStore interface {
	InsertReading(ctx context.Context, r Reading) (Reading, error)
	ListReadingsBetween(ctx context.Context, netuid string, from, to time.Time) ([]Reading, error)
	ListRecentReadings(ctx context.Context, netuid string, limit int) ([]Reading, error)
	CountReadings(ctx context.Context, netuid string) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store implements ReadingStore and AdvisoryLocker on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
// The lock is session scoped, so the connection is held until unlock.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// a failed unlock is released with the session
			conn.Conn().Close(ctxUnlock)
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertReading appends a reading and returns it with its generated columns.
func (s *Store) InsertReading(ctx context.Context, r Reading) (Reading, error) {
	pool, err := s.getPool()
	if err != nil {
		return Reading{}, err
	}

	notifications := r.Notifications
	if notifications == nil {
		notifications = []string{}
	}

	row := pool.QueryRow(ctx, insertReadingSQL,
		r.ObservedAt,
		r.NetUID,
		r.Cost.String(),
		r.Band,
		r.Low,
		r.SuperLow,
		notifications,
	)
	if err := row.Scan(&r.ID, &r.CreatedAt); err != nil {
		return Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	r.Notifications = notifications
	return r, nil
}

// ListReadingsBetween lists readings of a subnet within [from, to).
func (s *Store) ListReadingsBetween(ctx context.Context, netuid string, from, to time.Time) ([]Reading, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listReadingsBetweenSQL, netuid, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list readings between: %w", queryErr)
	}
	defer rows.Close()

	return collectReadings(rows, 0)
}

// ListRecentReadings lists the newest readings of a subnet first.
func (s *Store) ListRecentReadings(ctx context.Context, netuid string, limit int) ([]Reading, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentReadingsSQL, netuid, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent readings: %w", queryErr)
	}
	defer rows.Close()

	return collectReadings(rows, limit)
}

// CountReadings counts stored readings of a subnet.
func (s *Store) CountReadings(ctx context.Context, netuid string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countReadingsSQL, netuid).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count readings: %w", scanErr)
	}
	return count, nil
}

func collectReadings(rows pgx.Rows, capacity int) ([]Reading, error) {
	readings := make([]Reading, 0, capacity)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return readings, nil
}

func scanReading(rows pgx.Rows) (Reading, error) {
	var (
		r       Reading
		costStr string
	)
	if err := rows.Scan(
		&r.ID,
		&r.ObservedAt,
		&r.NetUID,
		&costStr,
		&r.Band,
		&r.Low,
		&r.SuperLow,
		&r.Notifications,
		&r.CreatedAt,
	); err != nil {
		return Reading{}, err
	}

	cost, err := decimal.NewFromString(costStr)
	if err != nil {
		return Reading{}, fmt.Errorf("parse cost: %w", err)
	}
	r.Cost = cost
	return r, nil
}
