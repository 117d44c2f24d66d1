package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-faktur/internal/billing"
	"github.com/noah-isme/backend-faktur/internal/events"
)

// Message is a rendered email waiting for delivery.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func extractRecipient(payload map[string]any) string {
	keys := []string{"customerEmail", "email", "recipient"}
	for _, key := range keys {
		if val, ok := payload[key]; ok {
			if s, ok := val.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func subjectFor(topic string, payload map[string]any) string {
	number, _ := payload["number"].(string)
	switch topic {
	case events.TopicQuotationIssued:
		return withNumber("Penawaran", number)
	case events.TopicQuotationConverted:
		return "Penawaran Anda menjadi faktur"
	case events.TopicInvoiceIssued:
		return withNumber("Faktur", number)
	case events.TopicInvoicePaid:
		return withNumber("Faktur lunas", number)
	case events.TopicInvoiceVoided:
		return withNumber("Faktur dibatalkan", number)
	case events.TopicCreditNoteIssued:
		return withNumber("Nota kredit", number)
	case events.TopicPaymentRecorded:
		return "Pembayaran diterima"
	case events.TopicReminderDue:
		return withNumber("Pengingat jatuh tempo", number)
	default:
		return fmt.Sprintf("Notifikasi %s", topic)
	}
}

func withNumber(base, number string) string {
	if number == "" {
		return base
	}
	return base + " " + number
}

func bodyFor(topic string, payload map[string]any, occurred time.Time) string {
	summary := openingFor(topic)
	if name, ok := payload["customerName"].(string); ok && name != "" {
		summary = fmt.Sprintf("Yth. %s,\n\n%s", name, summary)
	}
	if number, ok := payload["number"].(string); ok && number != "" {
		summary += fmt.Sprintf("\nNomor dokumen: %s", number)
	}
	if total, ok := payload["total"].(float64); ok {
		summary += fmt.Sprintf("\nTotal: %s", billing.FormatMoney(total))
	}
	if amount, ok := payload["amount"].(float64); ok {
		summary += fmt.Sprintf("\nJumlah diterima: %s", billing.FormatMoney(amount))
	}
	if due := parsedTime(payload["dueDate"]); !due.IsZero() {
		summary += fmt.Sprintf("\nJatuh tempo: %s", billing.FormatDate(due))
	}
	summary += fmt.Sprintf("\n\nDikirim otomatis pada %s.", billing.FormatDate(occurred))
	return summary
}

func openingFor(topic string) string {
	switch topic {
	case events.TopicQuotationIssued:
		return "Penawaran harga untuk Anda telah diterbitkan."
	case events.TopicQuotationConverted:
		return "Penawaran Anda telah dikonversi menjadi faktur."
	case events.TopicInvoiceIssued:
		return "Faktur baru telah diterbitkan untuk Anda."
	case events.TopicInvoicePaid:
		return "Pembayaran faktur Anda telah lunas. Terima kasih."
	case events.TopicInvoiceVoided:
		return "Faktur berikut telah dibatalkan."
	case events.TopicCreditNoteIssued:
		return "Nota kredit telah diterbitkan untuk Anda."
	case events.TopicPaymentRecorded:
		return "Kami telah menerima pembayaran Anda."
	case events.TopicReminderDue:
		return "Faktur Anda akan segera jatuh tempo. Mohon segera lakukan pembayaran."
	default:
		return fmt.Sprintf("Peristiwa %s tercatat.", topic)
	}
}

func parsedTime(value any) time.Time {
	s, ok := value.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
