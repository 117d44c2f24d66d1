package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-faktur/internal/document"
	"github.com/noah-isme/backend-faktur/internal/events"
	"github.com/noah-isme/backend-faktur/internal/obs"
)

// Docs loads the current document state before a reminder goes out.
type Docs interface {
	Get(ctx context.Context, id string) (document.Document, error)
}

// Handler processes due-date reminder tasks. It reloads the invoice, skips
// anything already paid, voided or reminded, and emits reminder.due so the
// notify pipeline sends the email.
type Handler struct {
	Docs   Docs
	Store  Store
	Bus    *events.Bus
	Logger *zerolog.Logger
	Now    func() time.Time
}

// duePayload is the reminder.due event body shared with the scanner.
type duePayload struct {
	DocumentID    string     `json:"documentId"`
	Kind          string     `json:"kind"`
	Number        string     `json:"number"`
	Total         float64    `json:"total"`
	BalanceDue    float64    `json:"balanceDue"`
	Currency      string     `json:"currency"`
	CustomerID    string     `json:"customerId"`
	CustomerName  string     `json:"customerName"`
	CustomerEmail string     `json:"customerEmail,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
}

// ProcessTask implements asynq.Handler.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	if h.Docs == nil || h.Bus == nil {
		return fmt.Errorf("reminder: handler not configured: %w", asynq.SkipRetry)
	}
	var payload taskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("reminder: decode task payload: %v: %w", err, asynq.SkipRetry)
	}

	doc, err := h.Docs.Get(ctx, payload.DocumentID)
	if errors.Is(err, document.ErrNotFound) {
		h.logger().Warn().Str("document_id", payload.DocumentID).Msg("reminder target gone")
		countReminder("skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reminder: load document: %w", err)
	}
	if doc.Status != document.StatusIssued || doc.BalanceDue <= 0 {
		countReminder("skipped")
		return nil
	}

	docID, err := uuid.Parse(doc.ID)
	if err != nil {
		return fmt.Errorf("reminder: bad document id %q: %w", doc.ID, asynq.SkipRetry)
	}
	if h.Store != nil {
		claimed, err := h.Store.ClaimReminder(ctx, docID, h.now())
		if err != nil {
			return fmt.Errorf("reminder: claim: %w", err)
		}
		if !claimed {
			countReminder("skipped")
			return nil
		}
	}

	if _, err := h.Bus.Emit(ctx, events.TopicReminderDue, docID, duePayload{
		DocumentID:    doc.ID,
		Kind:          string(doc.Kind),
		Number:        doc.Number,
		Total:         doc.Total,
		BalanceDue:    doc.BalanceDue,
		Currency:      doc.Currency,
		CustomerID:    doc.CustomerID,
		CustomerName:  doc.CustomerName,
		CustomerEmail: doc.CustomerEmail,
		DueDate:       doc.DueDate,
	}); err != nil {
		if h.Store != nil {
			if relErr := h.Store.ReleaseReminder(ctx, docID); relErr != nil {
				h.logger().Error().Err(relErr).Str("document_id", doc.ID).Msg("release reminder claim")
			}
		}
		countReminder("error")
		return fmt.Errorf("reminder: emit reminder.due: %w", err)
	}

	countReminder("sent")
	h.logger().Info().Str("document_id", doc.ID).Str("number", doc.Number).Msg("payment reminder sent")
	return nil
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) logger() *zerolog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

func countReminder(result string) {
	if obs.RemindersSentTotal != nil {
		obs.RemindersSentTotal.WithLabelValues(result).Inc()
	}
}
