package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/backend-faktur/internal/dispatch"
	"github.com/noah-isme/backend-faktur/internal/events"
)

// KindEmailDelivery is the dispatch task kind carrying rendered emails.
const KindEmailDelivery = "email-delivery"

// EmailScheduler renders an email for each emitted event and places it on the
// delivery queue. It implements events.Scheduler. Events without a resolvable
// recipient are skipped silently; the event itself is already persisted.
type EmailScheduler struct {
	Queue        dispatch.Enqueuer
	Enabled      bool
	MaxAttempts  int
	TopicToggles map[string]bool
}

// Schedule enqueues one email-delivery task for the event. The idempotency key
// ties the task to the event so a re-emitted event never mails twice.
func (s EmailScheduler) Schedule(ctx context.Context, event events.Event) error {
	if !s.Enabled || s.Queue.R == nil {
		return nil
	}
	if s.TopicToggles != nil {
		if enabled, ok := s.TopicToggles[event.Topic]; ok && !enabled {
			return nil
		}
	}
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("notify: decode event payload: %w", err)
		}
	}
	to := extractRecipient(payload)
	if to == "" {
		return nil
	}
	msg := Message{
		To:      to,
		Subject: subjectFor(event.Topic, payload),
		Body:    bodyFor(event.Topic, payload, event.OccurredAt),
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encode message: %w", err)
	}
	return s.Queue.Enqueue(ctx, dispatch.Task{
		Kind:           KindEmailDelivery,
		Payload:        raw,
		IdempotencyKey: event.ID.String() + ":" + event.Topic,
		MaxAttempts:    s.MaxAttempts,
	})
}
