package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable is returned when the store has no database pool.
var ErrStoreUnavailable = errors.New("dashboard: store unavailable")

// PGStore implements Querier on the documents and payments tables.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s *PGStore) RevenueBetween(ctx context.Context, from, to time.Time) (RevenueRow, error) {
	if s == nil || s.Pool == nil {
		return RevenueRow{}, ErrStoreUnavailable
	}
	var row RevenueRow
	err := s.Pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM payments WHERE paid_at >= $1 AND paid_at < $2`, from, to).
		Scan(&row.Amount, &row.Count)
	return row, err
}

func (s *PGStore) IssuedBetween(ctx context.Context, from, to time.Time) (IssuedRow, error) {
	if s == nil || s.Pool == nil {
		return IssuedRow{}, ErrStoreUnavailable
	}
	var row IssuedRow
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM documents WHERE kind = 'invoice' AND status IN ('issued', 'paid')
		AND issued_at >= $1 AND issued_at < $2`, from, to).
		Scan(&row.Count, &row.Total)
	return row, err
}

func (s *PGStore) OpenBalances(ctx context.Context, asOf time.Time) (OpenRow, error) {
	if s == nil || s.Pool == nil {
		return OpenRow{}, ErrStoreUnavailable
	}
	var row OpenRow
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total - amount_paid), 0),
		COUNT(*) FILTER (WHERE due_date < $1),
		COALESCE(SUM(total - amount_paid) FILTER (WHERE due_date < $1), 0)
		FROM documents WHERE kind = 'invoice' AND status = 'issued'
		AND total - amount_paid > 0`, asOf).
		Scan(&row.OutstandingCount, &row.OutstandingAmount, &row.OverdueCount, &row.OverdueAmount)
	return row, err
}
