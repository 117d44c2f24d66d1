package activity

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-faktur/internal/events"
)

type stubStore struct {
	lastInsert InsertActivityParams
	called     bool
}

func (s *stubStore) InsertActivity(_ context.Context, arg InsertActivityParams) (Entry, error) {
	s.called = true
	s.lastInsert = arg
	return Entry{ID: uuid.NewString(), Topic: arg.Topic, Summary: arg.Summary}, nil
}

func (s *stubStore) ListActivity(context.Context, ListActivityParams) ([]Entry, error) {
	return nil, nil
}

func (s *stubStore) CountActivity(context.Context, ListActivityParams) (int64, error) {
	return 0, nil
}

func TestRecorderNotify(t *testing.T) {
	store := &stubStore{}
	rec := Recorder{Store: store, Enabled: true}

	payload, err := json.Marshal(map[string]any{
		"number":       "INV-2026-0001",
		"customerName": "PT Sinar Abadi",
		"total":        885.0,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	event := events.Event{
		ID:          uuid.New(),
		Topic:       events.TopicInvoiceIssued,
		AggregateID: uuid.New(),
		Payload:     payload,
		OccurredAt:  time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
	}

	if err := rec.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !store.called {
		t.Fatal("expected store insert")
	}
	if store.lastInsert.Topic != events.TopicInvoiceIssued {
		t.Fatalf("unexpected topic: %s", store.lastInsert.Topic)
	}
	if store.lastInsert.Summary != "Faktur INV-2026-0001 diterbitkan untuk PT Sinar Abadi" {
		t.Fatalf("unexpected summary: %s", store.lastInsert.Summary)
	}
	if store.lastInsert.AggregateID != event.AggregateID {
		t.Fatal("aggregate id should carry over")
	}
	if string(store.lastInsert.Payload) != string(payload) {
		t.Fatal("payload should carry over unchanged")
	}
}

func TestRecorderDisabled(t *testing.T) {
	store := &stubStore{}
	rec := Recorder{Store: store}
	if err := rec.Notify(context.Background(), events.Event{Topic: events.TopicInvoicePaid}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if store.called {
		t.Fatal("expected no insert when disabled")
	}
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		topic   string
		payload string
		want    string
	}{
		{events.TopicPaymentRecorded, `{"number":"INV-2026-0001","amount":500}`, "Pembayaran Rp 500,00 diterima untuk INV-2026-0001"},
		{events.TopicQuotationConverted, `{"quotationNumber":"QUO-2026-0002"}`, "Penawaran QUO-2026-0002 dikonversi menjadi faktur"},
		{events.TopicInvoicePaid, `{"number":"INV-2026-0001"}`, "Faktur INV-2026-0001 lunas"},
		{events.TopicReminderDue, `{"number":"INV-2026-0003"}`, "Pengingat jatuh tempo dikirim untuk faktur INV-2026-0003"},
		{events.TopicQuotationIssued, `{"number":"QUO-2026-0004"}`, "Penawaran QUO-2026-0004 diterbitkan"},
		{"custom.topic", `{}`, "Peristiwa custom.topic tercatat"},
	}
	for _, tc := range cases {
		if got := Summarize(tc.topic, []byte(tc.payload)); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.topic, got, tc.want)
		}
	}
}
