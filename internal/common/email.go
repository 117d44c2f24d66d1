package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	Send(to, subject, html string) error
}

// NewRelayClient returns an HTTP client for the mail relay with tracing on
// the transport.
func NewRelayClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// HTTPEmailSender posts messages to an HTTP mail relay as JSON. The relay is
// any service accepting {from, to, subject, html} with a bearer token.
type HTTPEmailSender struct {
	Endpoint string
	From     string
	APIKey   string
	Client   *http.Client
}

// Send delivers one message through the relay. Non-2xx responses are
// reported as errors so the dispatch queue retries them.
func (s HTTPEmailSender) Send(to, subject, html string) error {
	payload, err := json.Marshal(map[string]string{
		"from":    s.From,
		"to":      to,
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return fmt.Errorf("encode mail payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	client := s.Client
	if client == nil {
		client = NewRelayClient(0)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post to mail relay: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail relay returned %d", resp.StatusCode)
	}
	return nil
}

// LogEmailSender writes outgoing mail to the log instead of an SMTP
// relay. Deployments without mail credentials run with this sender so
// the delivery pipeline stays observable end to end.
type LogEmailSender struct {
	From   string
	Logger *zerolog.Logger
}

// Send logs the message and reports success.
func (s LogEmailSender) Send(to, subject, html string) error {
	if s.Logger == nil {
		return nil
	}
	s.Logger.Info().
		Str("from", s.From).
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(html)).
		Msg("email delivered to log sink")
	return nil
}

// InMemoryEmail provides a test-friendly email sender that records messages.
type InMemoryEmail struct {
	Outbox []Email
}

// Email represents a single email message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(to, subject, html string) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// NopEmailSender implements EmailSender without performing any action.
type NopEmailSender struct{}

// Send implements EmailSender.
func (NopEmailSender) Send(string, string, string) error { return nil }
