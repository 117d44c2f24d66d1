package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-faktur/internal/document"
	"github.com/noah-isme/backend-faktur/internal/events"
	"github.com/noah-isme/backend-faktur/internal/lock"
)

const scanLockKey = "reminder:scan"

// Scanner is the safety net behind the asynq path. It periodically sweeps
// the documents table for issued invoices inside the reminder window that
// nothing reminded yet, e.g. tasks lost before a redis restart.
type Scanner struct {
	Store    Store
	Bus      *events.Bus
	Locker   lock.Locker
	LockTTL  time.Duration
	Lead     time.Duration
	Interval time.Duration
	Batch    int32
	Logger   *zerolog.Logger
	Now      func() time.Time
}

// Run sweeps until ctx is cancelled. The scan lock keeps concurrent workers
// from double-sending; losers skip the tick instead of queueing behind it.
func (s *Scanner) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.ScanOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger().Error().Err(err).Msg("reminder scan")
			}
		}
	}
}

// ScanOnce runs a single sweep under the cross-process lock.
func (s *Scanner) ScanOnce(ctx context.Context) error {
	held, err := s.Locker.TryWithLock(ctx, scanLockKey, s.LockTTL, s.sweep)
	if err != nil {
		return err
	}
	if !held {
		s.logger().Debug().Msg("reminder scan running elsewhere")
	}
	return nil
}

func (s *Scanner) sweep(ctx context.Context) error {
	if s.Store == nil || s.Bus == nil {
		return errors.New("reminder: scanner not configured")
	}
	batch := s.Batch
	if batch <= 0 {
		batch = 100
	}
	now := s.now()
	due, err := s.Store.DueInvoices(ctx, now.Add(s.Lead), batch)
	if err != nil {
		return err
	}
	sent := 0
	for _, inv := range due {
		if err := s.remind(ctx, inv, now); err != nil {
			s.logger().Error().Err(err).Str("number", inv.Number).Msg("scan reminder")
			continue
		}
		sent++
	}
	if sent > 0 {
		s.logger().Info().Int("sent", sent).Int("due", len(due)).Msg("reminder scan swept")
	}
	return nil
}

func (s *Scanner) remind(ctx context.Context, inv DueInvoice, now time.Time) error {
	claimed, err := s.Store.ClaimReminder(ctx, inv.ID, now)
	if err != nil {
		return err
	}
	if !claimed {
		countReminder("skipped")
		return nil
	}
	dueDate := inv.DueDate
	if _, err := s.Bus.Emit(ctx, events.TopicReminderDue, inv.ID, duePayload{
		DocumentID:    inv.ID.String(),
		Kind:          string(document.KindInvoice),
		Number:        inv.Number,
		Total:         inv.Total,
		BalanceDue:    inv.BalanceDue,
		Currency:      inv.Currency,
		CustomerID:    inv.CustomerID.String(),
		CustomerName:  inv.CustomerName,
		CustomerEmail: inv.CustomerEmail,
		DueDate:       &dueDate,
	}); err != nil {
		if relErr := s.Store.ReleaseReminder(ctx, inv.ID); relErr != nil {
			s.logger().Error().Err(relErr).Str("number", inv.Number).Msg("release reminder claim")
		}
		countReminder("error")
		return err
	}
	countReminder("sent")
	return nil
}

func (s *Scanner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scanner) logger() *zerolog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	nop := zerolog.Nop()
	return &nop
}
