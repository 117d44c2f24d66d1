package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the dead letter store dependency is not configured.
var ErrStoreUnavailable = errors.New("dispatch: store unavailable")

// Store provides database accessors for dead letter operations.
type Store interface {
	InsertDeadLetter(ctx context.Context, entry DeadLetter) (uuid.UUID, error)
	DeleteDeadLetter(ctx context.Context, id uuid.UUID) error
	GetDeadLetter(ctx context.Context, id uuid.UUID) (DeadLetter, error)
	ListDeadLetters(ctx context.Context, kind string, limit, offset int) ([]DeadLetter, error)
	CountDeadLetters(ctx context.Context, kind string) (int64, error)
	DeadLetterSizeByKind(ctx context.Context) (map[string]int64, error)
}

// DeadLetter is an exhausted task parked in the dispatch_dlq table.
// Payload holds the full queue envelope, not just the task body.
type DeadLetter struct {
	ID             uuid.UUID
	Kind           string
	IdempotencyKey string
	Payload        []byte
	Attempts       int
	LastError      *string
	CreatedAt      time.Time
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

func (s *pgStore) InsertDeadLetter(ctx context.Context, entry DeadLetter) (uuid.UUID, error) {
	if s == nil || s.pool == nil {
		return uuid.Nil, ErrStoreUnavailable
	}
	var lastError any
	if entry.LastError != nil {
		lastError = *entry.LastError
	}
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `INSERT INTO dispatch_dlq (kind, idem_key, payload, attempts, last_error)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, entry.Kind, entry.IdempotencyKey, entry.Payload, entry.Attempts, lastError).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *pgStore) DeleteDeadLetter(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM dispatch_dlq WHERE id = $1`, id)
	return err
}

func (s *pgStore) GetDeadLetter(ctx context.Context, id uuid.UUID) (DeadLetter, error) {
	if s == nil || s.pool == nil {
		return DeadLetter{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT id, kind, idem_key, payload, attempts, last_error, created_at FROM dispatch_dlq WHERE id = $1`, id)
	var entry DeadLetter
	var lastErr sql.NullString
	if err := row.Scan(&entry.ID, &entry.Kind, &entry.IdempotencyKey, &entry.Payload, &entry.Attempts, &lastErr, &entry.CreatedAt); err != nil {
		return DeadLetter{}, err
	}
	if lastErr.Valid {
		entry.LastError = &lastErr.String
	}
	return entry, nil
}

func (s *pgStore) ListDeadLetters(ctx context.Context, kind string, limit, offset int) ([]DeadLetter, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	limit = clampRange(limit, 1, 500)
	if offset < 0 {
		offset = 0
	}
	kind = strings.TrimSpace(kind)
	var (
		rows pgx.Rows
		err  error
	)
	if kind != "" {
		rows, err = s.pool.Query(ctx, `SELECT id, kind, idem_key, payload, attempts, last_error, created_at FROM dispatch_dlq WHERE kind = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, kind, limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT id, kind, idem_key, payload, attempts, last_error, created_at FROM dispatch_dlq ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]DeadLetter, 0, limit)
	for rows.Next() {
		var entry DeadLetter
		var lastErr sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Kind, &entry.IdempotencyKey, &entry.Payload, &entry.Attempts, &lastErr, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if lastErr.Valid {
			entry.LastError = &lastErr.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *pgStore) CountDeadLetters(ctx context.Context, kind string) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		var total int64
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dispatch_dlq`).Scan(&total); err != nil {
			return 0, err
		}
		return total, nil
	}
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dispatch_dlq WHERE kind = $1`, kind).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *pgStore) DeadLetterSizeByKind(ctx context.Context) (map[string]int64, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT kind, COUNT(*) FROM dispatch_dlq GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var (
			kind  string
			total int64
		)
		if err := rows.Scan(&kind, &total); err != nil {
			return nil, err
		}
		result[kind] = total
	}
	return result, rows.Err()
}

func clampRange(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
