package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable is returned when the store has no database pool.
var ErrStoreUnavailable = errors.New("reminder: store unavailable")

// Store tracks which invoices still need a payment reminder.
type Store interface {
	DueInvoices(ctx context.Context, before time.Time, limit int32) ([]DueInvoice, error)
	ClaimReminder(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ReleaseReminder(ctx context.Context, id uuid.UUID) error
}

// DueInvoice carries everything a reminder email needs.
type DueInvoice struct {
	ID            uuid.UUID
	Number        string
	Total         float64
	BalanceDue    float64
	Currency      string
	CustomerID    uuid.UUID
	CustomerName  string
	CustomerEmail string
	DueDate       time.Time
}

// PGStore implements Store on the documents table.
type PGStore struct {
	Pool *pgxpool.Pool
}

// DueInvoices lists unreminded issued invoices whose due date falls on or
// before the cutoff and that still carry an open balance.
func (s *PGStore) DueInvoices(ctx context.Context, before time.Time, limit int32) ([]DueInvoice, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrStoreUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `SELECT d.id, d.number, d.total, d.total - d.amount_paid,
		d.currency, d.customer_id, c.name, c.email, d.due_date
		FROM documents d JOIN customers c ON c.id = d.customer_id
		WHERE d.kind = 'invoice' AND d.status = 'issued'
		AND d.reminder_sent_at IS NULL
		AND d.due_date IS NOT NULL AND d.due_date <= $1
		AND d.total - d.amount_paid > 0
		ORDER BY d.due_date, d.id
		LIMIT $2`, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DueInvoice, 0, limit)
	for rows.Next() {
		var inv DueInvoice
		var id, customerID pgtype.UUID
		var number, email pgtype.Text
		var dueDate pgtype.Timestamptz
		if err := rows.Scan(&id, &number, &inv.Total, &inv.BalanceDue,
			&inv.Currency, &customerID, &inv.CustomerName, &email, &dueDate); err != nil {
			return nil, err
		}
		inv.ID = uuid.UUID(id.Bytes)
		inv.CustomerID = uuid.UUID(customerID.Bytes)
		inv.Number = number.String
		inv.CustomerEmail = email.String
		inv.DueDate = dueDate.Time
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ClaimReminder marks the invoice as reminded. It reports false when another
// worker already claimed it, which makes the asynq path and the scan path
// safe to run side by side.
func (s *PGStore) ClaimReminder(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if s == nil || s.Pool == nil {
		return false, ErrStoreUnavailable
	}
	tag, err := s.Pool.Exec(ctx,
		`UPDATE documents SET reminder_sent_at = $2 WHERE id = $1 AND reminder_sent_at IS NULL`,
		pgtype.UUID{Bytes: id, Valid: true}, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseReminder clears the claim so a failed send can be retried.
func (s *PGStore) ReleaseReminder(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Pool == nil {
		return ErrStoreUnavailable
	}
	_, err := s.Pool.Exec(ctx,
		`UPDATE documents SET reminder_sent_at = NULL WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true})
	return err
}
