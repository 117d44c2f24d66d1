package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-faktur/internal/events"
)

// Dashboard aggregates share this prefix so invalidation can sweep them
// without knowing which ranges were requested.
const dashboardPrefix = "dash:summary"

// KeyDashboardSummary returns the cache key for a summary window.
func KeyDashboardSummary(from, to time.Time) string {
	return dashboardPrefix + ":" + from.Format("2006-01-02") + ":" + to.Format("2006-01-02")
}

// Invalidator drops cached dashboard aggregates whenever money moves. It
// hangs off the event bus as a notifier next to the activity recorder.
type Invalidator struct {
	R *redis.Client
}

// Notify implements events.Notifier.
func (i Invalidator) Notify(ctx context.Context, event events.Event) error {
	if i.R == nil {
		return nil
	}
	switch event.Topic {
	case events.TopicInvoiceIssued, events.TopicInvoicePaid, events.TopicInvoiceVoided,
		events.TopicCreditNoteIssued, events.TopicPaymentRecorded:
	default:
		return nil
	}
	iter := i.R.Scan(ctx, 0, dashboardPrefix+":*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return i.R.Del(ctx, keys...).Err()
}
