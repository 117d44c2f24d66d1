package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/backend-faktur/internal/billing"
	"github.com/noah-isme/backend-faktur/internal/events"
)

// Entry is one row of the business activity feed.
type Entry struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Summary     string          `json:"summary"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Recorder turns emitted domain events into feed rows. It hangs off the
// event bus as a notifier, so every lifecycle transition lands in the feed
// without the services knowing about it.
type Recorder struct {
	Store   Store
	Enabled bool
}

// Notify implements events.Notifier.
func (r Recorder) Notify(ctx context.Context, event events.Event) error {
	if !r.Enabled {
		return nil
	}
	if r.Store == nil {
		return errors.New("activity: store not configured")
	}
	_, err := r.Store.InsertActivity(ctx, InsertActivityParams{
		Topic:       event.Topic,
		AggregateID: event.AggregateID,
		Summary:     Summarize(event.Topic, event.Payload),
		Payload:     event.Payload,
		OccurredAt:  event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("activity: record %s: %w", event.Topic, err)
	}
	return nil
}

// Summarize renders the one-line Indonesian feed text for an event.
func Summarize(topic string, payload json.RawMessage) string {
	var fields struct {
		Number          string   `json:"number"`
		QuotationNumber string   `json:"quotationNumber"`
		CustomerName    string   `json:"customerName"`
		Amount          *float64 `json:"amount"`
	}
	_ = json.Unmarshal(payload, &fields)

	switch topic {
	case events.TopicQuotationIssued:
		return forCustomer(fmt.Sprintf("Penawaran %s diterbitkan", fields.Number), fields.CustomerName)
	case events.TopicQuotationConverted:
		return fmt.Sprintf("Penawaran %s dikonversi menjadi faktur", fields.QuotationNumber)
	case events.TopicInvoiceIssued:
		return forCustomer(fmt.Sprintf("Faktur %s diterbitkan", fields.Number), fields.CustomerName)
	case events.TopicInvoicePaid:
		return fmt.Sprintf("Faktur %s lunas", fields.Number)
	case events.TopicInvoiceVoided:
		return fmt.Sprintf("Dokumen %s dibatalkan", fields.Number)
	case events.TopicCreditNoteIssued:
		return forCustomer(fmt.Sprintf("Nota kredit %s diterbitkan", fields.Number), fields.CustomerName)
	case events.TopicPaymentRecorded:
		if fields.Amount != nil {
			return fmt.Sprintf("Pembayaran %s diterima untuk %s", billing.FormatMoney(*fields.Amount), fields.Number)
		}
		return fmt.Sprintf("Pembayaran diterima untuk %s", fields.Number)
	case events.TopicReminderDue:
		return fmt.Sprintf("Pengingat jatuh tempo dikirim untuk faktur %s", fields.Number)
	default:
		return fmt.Sprintf("Peristiwa %s tercatat", topic)
	}
}

func forCustomer(base, name string) string {
	if name == "" {
		return base
	}
	return base + " untuk " + name
}
