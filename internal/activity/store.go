package activity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable is returned when the store has no database pool.
var ErrStoreUnavailable = errors.New("activity: store unavailable")

// Store defines the persistence operations for the activity feed.
type Store interface {
	InsertActivity(ctx context.Context, arg InsertActivityParams) (Entry, error)
	ListActivity(ctx context.Context, arg ListActivityParams) ([]Entry, error)
	CountActivity(ctx context.Context, arg ListActivityParams) (int64, error)
}

// InsertActivityParams holds one feed row to persist.
type InsertActivityParams struct {
	Topic       string
	AggregateID uuid.UUID
	Summary     string
	Payload     []byte
	OccurredAt  time.Time
}

// ListActivityParams filters the feed. Empty topic and uuid.Nil aggregate
// disable the corresponding filter.
type ListActivityParams struct {
	Topic       string
	AggregateID uuid.UUID
	Limit       int32
	Offset      int32
}

// PGStore implements Store on the activity_log table.
type PGStore struct {
	Pool *pgxpool.Pool
}

const activityFilterClause = ` WHERE ($1 = '' OR topic = $1)
	AND ($2::uuid IS NULL OR aggregate_id = $2)`

func (s *PGStore) InsertActivity(ctx context.Context, arg InsertActivityParams) (Entry, error) {
	if s == nil || s.Pool == nil {
		return Entry{}, ErrStoreUnavailable
	}
	payload := arg.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	occurred := arg.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	row := s.Pool.QueryRow(ctx, `INSERT INTO activity_log (topic, aggregate_id, summary, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, topic, aggregate_id, summary, payload, occurred_at`,
		arg.Topic, pgtype.UUID{Bytes: arg.AggregateID, Valid: true}, arg.Summary, payload, occurred)
	return scanEntry(row)
}

func (s *PGStore) ListActivity(ctx context.Context, arg ListActivityParams) ([]Entry, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrStoreUnavailable
	}
	limit := arg.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := arg.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, topic, aggregate_id, summary, payload, occurred_at
		FROM activity_log`+activityFilterClause+`
		ORDER BY occurred_at DESC, id DESC LIMIT $3 OFFSET $4`,
		arg.Topic, nullableUUID(arg.AggregateID), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PGStore) CountActivity(ctx context.Context, arg ListActivityParams) (int64, error) {
	if s == nil || s.Pool == nil {
		return 0, ErrStoreUnavailable
	}
	var total int64
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM activity_log`+activityFilterClause,
		arg.Topic, nullableUUID(arg.AggregateID)).Scan(&total)
	return total, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var entry Entry
	var id, aggregate pgtype.UUID
	var payload []byte
	var occurred pgtype.Timestamptz
	if err := row.Scan(&id, &entry.Topic, &aggregate, &entry.Summary, &payload, &occurred); err != nil {
		return Entry{}, err
	}
	entry.ID = uuid.UUID(id.Bytes).String()
	entry.AggregateID = uuid.UUID(aggregate.Bytes).String()
	entry.Payload = payload
	entry.OccurredAt = occurred.Time
	return entry, nil
}

func nullableUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}
