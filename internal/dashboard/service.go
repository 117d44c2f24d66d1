package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-faktur/internal/cache"
)

// Querier defines the aggregate queries behind the dashboard.
type Querier interface {
	RevenueBetween(ctx context.Context, from, to time.Time) (RevenueRow, error)
	IssuedBetween(ctx context.Context, from, to time.Time) (IssuedRow, error)
	OpenBalances(ctx context.Context, asOf time.Time) (OpenRow, error)
}

// RevenueRow aggregates recorded payments.
type RevenueRow struct {
	Amount float64
	Count  int64
}

// IssuedRow aggregates invoices issued in a period.
type IssuedRow struct {
	Count int64
	Total float64
}

// OpenRow aggregates unpaid invoice balances as of a point in time.
type OpenRow struct {
	OutstandingCount  int64
	OutstandingAmount float64
	OverdueCount      int64
	OverdueAmount     float64
}

// Bucket is a count plus amount pair in the summary response.
type Bucket struct {
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

// Summary is the dashboard payload.
type Summary struct {
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Revenue        float64   `json:"revenue"`
	PaymentsCount  int64     `json:"paymentsCount"`
	InvoicesIssued int64     `json:"invoicesIssued"`
	InvoicedTotal  float64   `json:"invoicedTotal"`
	Outstanding    Bucket    `json:"outstanding"`
	Overdue        Bucket    `json:"overdue"`
}

// Service answers dashboard reads, cache-aside over redis. Writes never touch
// this package: cache.Invalidator drops the keys when money moves.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Summary aggregates revenue for [from, to) plus open balances as of now.
func (s *Service) Summary(ctx context.Context, from, to time.Time) (Summary, error) {
	if s == nil || s.Q == nil {
		return Summary{}, errors.New("dashboard: service not configured")
	}
	key := cache.KeyDashboardSummary(from, to)
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	revenue, err := s.Q.RevenueBetween(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	issued, err := s.Q.IssuedBetween(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	open, err := s.Q.OpenBalances(ctx, s.now())
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		From:           from,
		To:             to,
		Revenue:        revenue.Amount,
		PaymentsCount:  revenue.Count,
		InvoicesIssued: issued.Count,
		InvoicedTotal:  issued.Total,
		Outstanding:    Bucket{Count: open.OutstandingCount, Amount: open.OutstandingAmount},
		Overdue:        Bucket{Count: open.OverdueCount, Amount: open.OverdueAmount},
	}
	s.store(ctx, key, summary)
	return summary, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (Summary, bool) {
	if s.R == nil || s.TTL <= 0 {
		return Summary{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return Summary{}, false
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return Summary{}, false
	}
	return summary, true
}

func (s *Service) store(ctx context.Context, key string, summary Summary) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
