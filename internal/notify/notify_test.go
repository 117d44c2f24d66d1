package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-faktur/internal/common"
	"github.com/noah-isme/backend-faktur/internal/dispatch"
	"github.com/noah-isme/backend-faktur/internal/events"
	"github.com/noah-isme/backend-faktur/internal/notify"
	"github.com/noah-isme/backend-faktur/internal/resilience"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func invoiceIssuedEvent(t *testing.T) events.Event {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"documentId":    uuid.NewString(),
		"kind":          "invoice",
		"number":        "INV-2026-0007",
		"total":         885.0,
		"customerName":  "PT Sinar Abadi",
		"customerEmail": "finance@sinarabadi.co.id",
		"dueDate":       "2026-03-23T10:00:00Z",
	})
	require.NoError(t, err)
	return events.Event{
		ID:          uuid.New(),
		Topic:       events.TopicInvoiceIssued,
		AggregateID: uuid.New(),
		Payload:     payload,
		OccurredAt:  time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
	}
}

func TestScheduleRendersAndEnqueues(t *testing.T) {
	client := newRedis(t)
	scheduler := notify.EmailScheduler{
		Queue:       dispatch.Enqueuer{R: client, Prefix: "nt", DedupTTL: time.Minute},
		Enabled:     true,
		MaxAttempts: 5,
	}

	event := invoiceIssuedEvent(t)
	require.NoError(t, scheduler.Schedule(context.Background(), event))

	members, err := client.ZRange(context.Background(), "nt:queue:email-delivery", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, members, 1)

	var envelope struct {
		Kind    string `json:"kind"`
		Key     string `json:"key"`
		Payload []byte `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(members[0]), &envelope))
	require.Equal(t, notify.KindEmailDelivery, envelope.Kind)
	require.Equal(t, event.ID.String()+":"+events.TopicInvoiceIssued, envelope.Key)

	var msg notify.Message
	require.NoError(t, json.Unmarshal(envelope.Payload, &msg))
	require.Equal(t, "finance@sinarabadi.co.id", msg.To)
	require.Equal(t, "Faktur INV-2026-0007", msg.Subject)
	require.Contains(t, msg.Body, "Yth. PT Sinar Abadi")
	require.Contains(t, msg.Body, "INV-2026-0007")
	require.Contains(t, msg.Body, "Rp 885,00")
	require.Contains(t, msg.Body, "Jatuh tempo: 23/03/2026")
}

func TestScheduleDuplicateEventEnqueuesOnce(t *testing.T) {
	client := newRedis(t)
	scheduler := notify.EmailScheduler{
		Queue:   dispatch.Enqueuer{R: client, Prefix: "nt", DedupTTL: time.Minute},
		Enabled: true,
	}

	event := invoiceIssuedEvent(t)
	require.NoError(t, scheduler.Schedule(context.Background(), event))
	require.NoError(t, scheduler.Schedule(context.Background(), event))

	depth, err := client.ZCard(context.Background(), "nt:queue:email-delivery").Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), depth)
}

func TestScheduleHonorsTopicToggle(t *testing.T) {
	client := newRedis(t)
	scheduler := notify.EmailScheduler{
		Queue:        dispatch.Enqueuer{R: client, Prefix: "nt"},
		Enabled:      true,
		TopicToggles: map[string]bool{events.TopicInvoiceIssued: false},
	}

	require.NoError(t, scheduler.Schedule(context.Background(), invoiceIssuedEvent(t)))

	depth, err := client.ZCard(context.Background(), "nt:queue:email-delivery").Result()
	require.NoError(t, err)
	require.Equal(t, int64(0), depth)
}

func TestScheduleSkipsEventsWithoutRecipient(t *testing.T) {
	client := newRedis(t)
	scheduler := notify.EmailScheduler{
		Queue:   dispatch.Enqueuer{R: client, Prefix: "nt"},
		Enabled: true,
	}

	payload, err := json.Marshal(map[string]any{"number": "INV-2026-0001", "total": 100.0})
	require.NoError(t, err)
	event := events.Event{
		ID:          uuid.New(),
		Topic:       events.TopicInvoiceIssued,
		AggregateID: uuid.New(),
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	require.NoError(t, scheduler.Schedule(context.Background(), event))

	depth, err := client.ZCard(context.Background(), "nt:queue:email-delivery").Result()
	require.NoError(t, err)
	require.Equal(t, int64(0), depth)
}

func TestDelivererSendsEmail(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	deliverer := &notify.Deliverer{Mail: outbox}

	raw, err := json.Marshal(notify.Message{
		To:      "finance@sinarabadi.co.id",
		Subject: "Faktur INV-2026-0007",
		Body:    "Faktur baru telah diterbitkan untuk Anda.",
	})
	require.NoError(t, err)

	err = deliverer.Handle(context.Background(), dispatch.Task{
		Kind:    notify.KindEmailDelivery,
		Payload: raw,
		Attempt: 1,
	})
	require.NoError(t, err)
	require.Len(t, outbox.Outbox, 1)
	require.Equal(t, "finance@sinarabadi.co.id", outbox.Outbox[0].To)
	require.Equal(t, "Faktur INV-2026-0007", outbox.Outbox[0].Subject)
}

type failingSender struct{ calls int }

func (f *failingSender) Send(string, string, string) error {
	f.calls++
	return errors.New("smtp unreachable")
}

func TestDelivererBreakerShortCircuits(t *testing.T) {
	sender := &failingSender{}
	deliverer := &notify.Deliverer{
		Mail:    sender,
		Breaker: resilience.NewBreaker(1, 1, time.Minute),
	}

	raw, err := json.Marshal(notify.Message{To: "a@b.co", Subject: "s", Body: "b"})
	require.NoError(t, err)
	task := dispatch.Task{Kind: notify.KindEmailDelivery, Payload: raw, Attempt: 1, MaxAttempts: 5}

	err = deliverer.Handle(context.Background(), task)
	require.Error(t, err)
	require.Equal(t, 1, sender.calls)

	err = deliverer.Handle(context.Background(), task)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, 1, sender.calls)
}

type chanSender struct{ sent chan common.Email }

func (c chanSender) Send(to, subject, html string) error {
	c.sent <- common.Email{To: to, Subject: subject, HTML: html}
	return nil
}

func TestEmailFlowEndToEnd(t *testing.T) {
	client := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := notify.EmailScheduler{
		Queue:       dispatch.Enqueuer{R: client, Prefix: "e2e", DedupTTL: time.Minute},
		Enabled:     true,
		MaxAttempts: 3,
	}
	sender := chanSender{sent: make(chan common.Email, 1)}
	deliverer := &notify.Deliverer{Mail: sender}

	worker := dispatch.Worker{
		R:                 client,
		Prefix:            "e2e",
		Kind:              notify.KindEmailDelivery,
		Concurrency:       1,
		VisibilityTimeout: time.Second,
		RetryBase:         10 * time.Millisecond,
		Handler:           deliverer.Handle,
	}
	go func() { _ = worker.Run(ctx) }()

	require.NoError(t, scheduler.Schedule(context.Background(), invoiceIssuedEvent(t)))

	select {
	case email := <-sender.sent:
		require.Equal(t, "finance@sinarabadi.co.id", email.To)
		require.Equal(t, "Faktur INV-2026-0007", email.Subject)
	case <-time.After(2 * time.Second):
		t.Fatal("email was not delivered")
	}
}
