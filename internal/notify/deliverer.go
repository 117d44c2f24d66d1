package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-faktur/internal/common"
	"github.com/noah-isme/backend-faktur/internal/dispatch"
	"github.com/noah-isme/backend-faktur/internal/obs"
	"github.com/noah-isme/backend-faktur/internal/resilience"
)

// Deliverer sends rendered emails popped off the dispatch queue. Every send
// goes through the breaker when one is configured.
type Deliverer struct {
	Mail    common.EmailSender
	Breaker *resilience.Breaker
}

// Handle implements the dispatch worker handler for email-delivery tasks.
// Returned errors put the task back on the queue with backoff.
func (d *Deliverer) Handle(ctx context.Context, task dispatch.Task) error {
	if d == nil || d.Mail == nil {
		return errors.New("notify: mail sender not configured")
	}
	ctx, span := otel.Tracer("notify.Deliverer").Start(ctx, "Deliverer.Handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("dispatch.kind", task.Kind),
		attribute.Int("dispatch.attempt", task.Attempt),
	)

	if obs.EmailDispatchAttempts != nil {
		obs.EmailDispatchAttempts.Inc()
	}

	var msg Message
	if err := json.Unmarshal(task.Payload, &msg); err != nil {
		span.RecordError(err)
		return fmt.Errorf("notify: decode message: %w", err)
	}
	if msg.To == "" {
		return nil
	}

	if d.Breaker != nil && !d.Breaker.Allow(ctx) {
		span.AddEvent("mailer circuit open")
		return resilience.ErrOpenCircuit
	}
	err := d.Mail.Send(msg.To, msg.Subject, msg.Body)
	if d.Breaker != nil {
		d.Breaker.Report(ctx, err == nil)
	}
	if err != nil {
		span.RecordError(err)
		if obs.EmailDeliveriesTotal != nil {
			obs.EmailDeliveriesTotal.WithLabelValues("failed").Inc()
		}
		if task.MaxAttempts > 0 && task.Attempt >= task.MaxAttempts {
			if obs.EmailDispatchDLQ != nil {
				obs.EmailDispatchDLQ.Inc()
			}
		}
		return err
	}
	if obs.EmailDeliveriesTotal != nil {
		obs.EmailDeliveriesTotal.WithLabelValues("delivered").Inc()
	}
	return nil
}
