package events

// Topic constants for domain events emitted by the platform.
const (
	TopicQuotationIssued    = "quotation.issued"
	TopicQuotationConverted = "quotation.converted"
	TopicInvoiceIssued      = "invoice.issued"
	TopicInvoicePaid        = "invoice.paid"
	TopicInvoiceVoided      = "invoice.voided"
	TopicCreditNoteIssued   = "credit_note.issued"
	TopicPaymentRecorded    = "payment.recorded"
	TopicReminderDue        = "reminder.due"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicQuotationIssued,
		TopicQuotationConverted,
		TopicInvoiceIssued,
		TopicInvoicePaid,
		TopicInvoiceVoided,
		TopicCreditNoteIssued,
		TopicPaymentRecorded,
		TopicReminderDue,
	}
}
