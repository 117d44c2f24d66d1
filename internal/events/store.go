package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists domain events in Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

const insertEventSQL = `
INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id, topic, aggregate_id, payload, occurred_at`

// InsertEvent implements Store.
func (s *PGStore) InsertEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	var (
		id         pgtype.UUID
		aggregate  pgtype.UUID
		occurredAt pgtype.Timestamptz
		ev         Event
	)
	row := s.Pool.QueryRow(ctx, insertEventSQL, topic, pgtype.UUID{Bytes: aggregateID, Valid: true}, payload)
	if err := row.Scan(&id, &ev.Topic, &aggregate, &ev.Payload, &occurredAt); err != nil {
		return Event{}, err
	}
	ev.ID = uuid.UUID(id.Bytes)
	ev.AggregateID = uuid.UUID(aggregate.Bytes)
	ev.OccurredAt = occurredAt.Time
	return ev, nil
}
