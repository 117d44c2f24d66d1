package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-faktur/internal/events"
)

// TaskPaymentDue is the asynq task type for due-date payment reminders.
const TaskPaymentDue = "reminder:payment-due"

// QueueName is the asynq queue reminders run on.
const QueueName = "reminders"

const maxTaskRetries = 5

// taskPayload travels inside the asynq task. The handler reloads the
// document before sending, so only identity and timing ride along.
type taskPayload struct {
	DocumentID string    `json:"documentId"`
	Number     string    `json:"number"`
	DueDate    time.Time `json:"dueDate"`
}

// TaskClient is the slice of asynq.Client the scheduler needs.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler books a payment reminder when an invoice is issued. The task is
// delayed until due date minus Lead and deduplicated on the document id, so
// replayed issue events cannot double-book.
type Scheduler struct {
	Client  TaskClient
	Lead    time.Duration
	Enabled bool
	Logger  *zerolog.Logger
	Now     func() time.Time
}

// Schedule implements events.Scheduler for invoice.issued events.
func (s *Scheduler) Schedule(ctx context.Context, event events.Event) error {
	if !s.Enabled || s.Client == nil {
		return nil
	}
	if event.Topic != events.TopicInvoiceIssued {
		return nil
	}
	var payload struct {
		DocumentID string     `json:"documentId"`
		Number     string     `json:"number"`
		DueDate    *time.Time `json:"dueDate"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("reminder: decode event payload: %w", err)
	}
	if payload.DocumentID == "" || payload.DueDate == nil {
		return nil
	}

	remindAt := payload.DueDate.Add(-s.Lead)
	if now := s.now(); remindAt.Before(now) {
		remindAt = now
	}
	body, err := json.Marshal(taskPayload{
		DocumentID: payload.DocumentID,
		Number:     payload.Number,
		DueDate:    *payload.DueDate,
	})
	if err != nil {
		return fmt.Errorf("reminder: encode task payload: %w", err)
	}

	_, err = s.Client.EnqueueContext(ctx, asynq.NewTask(TaskPaymentDue, body),
		asynq.TaskID("reminder:"+payload.DocumentID),
		asynq.ProcessAt(remindAt),
		asynq.Queue(QueueName),
		asynq.MaxRetry(maxTaskRetries),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reminder: enqueue task: %w", err)
	}
	s.logger().Debug().
		Str("document_id", payload.DocumentID).
		Str("number", payload.Number).
		Time("remind_at", remindAt).
		Msg("payment reminder scheduled")
	return nil
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) logger() *zerolog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	nop := zerolog.Nop()
	return &nop
}
