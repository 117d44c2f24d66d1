package document

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-faktur/internal/billing"
	"github.com/noah-isme/backend-faktur/internal/events"
	"github.com/noah-isme/backend-faktur/internal/obs"
)

// Kind identifies the commercial document type.
type Kind string

const (
	KindQuotation  Kind = "quotation"
	KindInvoice    Kind = "invoice"
	KindCreditNote Kind = "credit_note"
)

// ParseKind maps free-form input to a known document kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindQuotation:
		return KindQuotation, nil
	case KindInvoice:
		return KindInvoice, nil
	case KindCreditNote:
		return KindCreditNote, nil
	default:
		return "", ErrUnknownKind
	}
}

// Status tracks the document lifecycle. Drafts are editable; issuing assigns
// the number and freezes the content; paid and void are terminal.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusIssued Status = "issued"
	StatusPaid   Status = "paid"
	StatusVoid   Status = "void"
)

var (
	ErrNotFound         = errors.New("document: not found")
	ErrUnknownKind      = errors.New("document: unknown kind")
	ErrCustomerNotFound = errors.New("document: customer not found")
	ErrNotDraft         = errors.New("document: only drafts can be modified")
	ErrNotIssued        = errors.New("document: document is not issued")
	ErrAlreadyPaid      = errors.New("document: document is already paid")
	ErrAlreadyConverted = errors.New("document: quotation already converted")
	ErrNotConvertible   = errors.New("document: only quotations can be converted")
	ErrNotInvoice       = errors.New("document: payments apply to invoices only")
	ErrNoLines          = errors.New("document: document has no lines")
	ErrInvalidAmount    = errors.New("document: payment amount must be positive")
	ErrOverpaid         = errors.New("document: payment exceeds balance due")
)

// Line is a stored document line. Net is derived from quantity and unit price
// at write time; VatRate is the normalized fraction.
type Line struct {
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	VatRate     float64 `json:"vatRate"`
	Net         float64 `json:"net"`
}

// VatRow is one row of the per-rate VAT breakdown persisted with the document.
type VatRow struct {
	Rate        float64 `json:"rate"`
	DisplayRate string  `json:"displayRate"`
	NetAmount   float64 `json:"netAmount"`
	VatAmount   float64 `json:"vatAmount"`
}

// Document is a quotation, invoice or credit note with its computed totals.
type Document struct {
	ID             string     `json:"id"`
	Kind           Kind       `json:"kind"`
	Status         Status     `json:"status"`
	Number         string     `json:"number,omitempty"`
	CustomerID     string     `json:"customerId"`
	CustomerName   string     `json:"customerName,omitempty"`
	CustomerEmail  string     `json:"customerEmail,omitempty"`
	Currency       string     `json:"currency"`
	Notes          string     `json:"notes,omitempty"`
	DiscountType   string     `json:"discountType"`
	DiscountValue  float64    `json:"discountValue"`
	Lines          []Line     `json:"lines,omitempty"`
	Subtotal       float64    `json:"subtotal"`
	DiscountAmount float64    `json:"discountAmount"`
	TaxableAmount  float64    `json:"taxableAmount"`
	VatAmount      float64    `json:"vatAmount"`
	Total          float64    `json:"total"`
	AmountPaid     float64    `json:"amountPaid"`
	BalanceDue     float64    `json:"balanceDue"`
	VatBreakdown   []VatRow   `json:"vatBreakdown,omitempty"`
	IssuedAt       *time.Time `json:"issuedAt,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`
	VoidedAt       *time.Time `json:"voidedAt,omitempty"`
	SourceID       string     `json:"sourceId,omitempty"`
	ConvertedTo    string     `json:"convertedTo,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Payment is a settlement recorded against an invoice.
type Payment struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"`
	Reference  string    `json:"reference,omitempty"`
	PaidAt     time.Time `json:"paidAt"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LineInput is one line of a create or update request. A nil VatRate falls
// back to the configured default rate.
type LineInput struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	VatRate     *float64
}

// Input carries the writable fields of a document.
type Input struct {
	Kind          string
	CustomerID    string
	Currency      string
	Notes         string
	DiscountType  string
	DiscountValue float64
	Lines         []LineInput
}

// PaymentInput carries the fields of a payment request.
type PaymentInput struct {
	Amount    float64
	Method    string
	Reference string
	PaidAt    time.Time
	Notes     string
}

// ListFilter narrows List and Count results.
type ListFilter struct {
	Kind       string
	Status     string
	CustomerID string
	Search     string
	Page       int
	PerPage    int
}

// Querier is the storage surface the service depends on. Implementations are
// expected to enforce the status guards transactionally.
type Querier interface {
	InsertDocument(ctx context.Context, arg InsertDocumentParams) (Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (Document, error)
	ListDocuments(ctx context.Context, arg ListDocumentsParams) ([]Document, error)
	CountDocuments(ctx context.Context, arg ListDocumentsParams) (int64, error)
	UpdateDraft(ctx context.Context, arg UpdateDraftParams) (Document, error)
	DeleteDraft(ctx context.Context, id uuid.UUID) error
	IssueDocument(ctx context.Context, arg IssueDocumentParams) (Document, error)
	VoidDocument(ctx context.Context, arg VoidDocumentParams) (Document, error)
	ConvertQuotation(ctx context.Context, arg ConvertQuotationParams) (Document, error)
	InsertPayment(ctx context.Context, arg InsertPaymentParams) (Payment, Document, error)
	ListPayments(ctx context.Context, documentID uuid.UUID) ([]Payment, error)
}

// ListDocumentsParams filters the document listing. Empty strings and
// uuid.Nil disable the corresponding filter.
type ListDocumentsParams struct {
	Kind       string
	Status     string
	CustomerID uuid.UUID
	Search     string
	Limit      int
	Offset     int
}

// LineParams is a line ready for persistence.
type LineParams struct {
	Position    int
	Description string
	Quantity    float64
	UnitPrice   float64
	VatRate     float64
	Net         float64
}

// InsertDocumentParams carries a fully computed document for insertion.
type InsertDocumentParams struct {
	Kind           Kind
	CustomerID     uuid.UUID
	Currency       string
	Notes          string
	DiscountType   billing.DiscountType
	DiscountValue  float64
	Lines          []LineParams
	Subtotal       float64
	DiscountAmount float64
	TaxableAmount  float64
	VatAmount      float64
	Total          float64
	VatBreakdown   []byte
	SourceID       uuid.UUID
}

// UpdateDraftParams replaces the content of a draft wholesale.
type UpdateDraftParams struct {
	ID             uuid.UUID
	CustomerID     uuid.UUID
	Currency       string
	Notes          string
	DiscountType   billing.DiscountType
	DiscountValue  float64
	Lines          []LineParams
	Subtotal       float64
	DiscountAmount float64
	TaxableAmount  float64
	VatAmount      float64
	Total          float64
	VatBreakdown   []byte
}

// IssueDocumentParams assigns the next sequential number and flips the status.
type IssueDocumentParams struct {
	ID       uuid.UUID
	Prefix   string
	Year     int
	IssuedAt time.Time
	DueDate  *time.Time
}

// VoidDocumentParams marks an issued document void.
type VoidDocumentParams struct {
	ID       uuid.UUID
	VoidedAt time.Time
}

// ConvertQuotationParams creates the invoice draft and links the quotation in
// one transaction.
type ConvertQuotationParams struct {
	QuotationID uuid.UUID
	Invoice     InsertDocumentParams
}

// InsertPaymentParams records a payment against an issued invoice.
type InsertPaymentParams struct {
	DocumentID uuid.UUID
	Amount     float64
	Method     string
	Reference  string
	PaidAt     time.Time
	Notes      string
}

/// Service owns the document lifecycle: drafting, numbering, issuing, voiding,
// quotation conversion and payment settlement.
type Service struct {
	Q   Querier
	Bus *events.Bus
	Now func() time.Time

	// DefaultVatRate accepts a fraction or a percent, like line rates.
	DefaultVatRate  float64
	DefaultCurrency string
	PaymentTermDays int

	QuotationPrefix  string
	InvoicePrefix    string
	CreditNotePrefix string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) defaultRate() float64 {
	if s.DefaultVatRate > 0 {
		return billing.NormalizeRate(s.DefaultVatRate)
	}
	return 0.11
}

func (s *Service) currencyOr(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c != "" {
		return c
	}
	if s.DefaultCurrency != "" {
		return strings.ToUpper(s.DefaultCurrency)
	}
	return "IDR"
}

func (s *Service) termDays() int {
	if s.PaymentTermDays > 0 {
		return s.PaymentTermDays
	}
	return 14
}

func (s *Service) prefixFor(kind Kind) string {
	switch kind {
	case KindQuotation:
		if s.QuotationPrefix != "" {
			return s.QuotationPrefix
		}
		return "QUO"
	case KindCreditNote:
		if s.CreditNotePrefix != "" {
			return s.CreditNotePrefix
		}
		return "CN"
	default:
		if s.InvoicePrefix != "" {
			return s.InvoicePrefix
		}
		return "INV"
	}
}

// computed bundles the billing results shared by create, update and preview.
type computed struct {
	lines     []LineParams
	totals    billing.Totals
	breakdown []VatRow
	rawRows   []byte
}

func (s *Service) compute(lines []LineInput, discountType string, discountValue float64) (computed, error) {
	discount := billing.Discount{
		Type:  billing.ParseDiscountType(strings.ToLower(strings.TrimSpace(discountType))),
		Value: discountValue,
	}

	blines := make([]billing.Line, len(lines))
	params := make([]LineParams, len(lines))
	for i, in := range lines {
		rate := s.defaultRate()
		if in.VatRate != nil {
			rate = billing.NormalizeRate(*in.VatRate)
		}
		blines[i] = billing.Line{Quantity: in.Quantity, UnitPrice: in.UnitPrice, VatRate: rate}
		params[i] = LineParams{
			Position:    i,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			VatRate:     rate,
			Net:         billing.LineNet(in.Quantity, in.UnitPrice),
		}
	}

	totals := billing.ComputeTotals(blines, discount)
	summary := billing.ComputeVatSummary(blines, discount)
	breakdown := make([]VatRow, len(summary.Rows))
	for i, row := range summary.Rows {
		breakdown[i] = VatRow{
			Rate:        row.Rate,
			DisplayRate: row.DisplayRate,
			NetAmount:   row.NetAmount,
			VatAmount:   row.VatAmount,
		}
	}
	raw, err := json.Marshal(breakdown)
	if err != nil {
		return computed{}, err
	}
	return computed{lines: params, totals: totals, breakdown: breakdown, rawRows: raw}, nil
}

// Create stores a new draft with computed totals. Drafts carry no number.
func (s *Service) Create(ctx context.Context, in Input) (Document, error) {
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return Document{}, err
	}
	customerID, err := uuid.Parse(strings.TrimSpace(in.CustomerID))
	if err != nil {
		return Document{}, ErrCustomerNotFound
	}
	calc, err := s.compute(in.Lines, in.DiscountType, in.DiscountValue)
	if err != nil {
		return Document{}, err
	}
	return s.Q.InsertDocument(ctx, InsertDocumentParams{
		Kind:           kind,
		CustomerID:     customerID,
		Currency:       s.currencyOr(in.Currency),
		Notes:          strings.TrimSpace(in.Notes),
		DiscountType:   billing.ParseDiscountType(strings.ToLower(strings.TrimSpace(in.DiscountType))),
		DiscountValue:  in.DiscountValue,
		Lines:          calc.lines,
		Subtotal:       calc.totals.Subtotal,
		DiscountAmount: calc.totals.DiscountAmount,
		TaxableAmount:  calc.totals.Taxable,
		VatAmount:      calc.totals.VatAmount,
		Total:          calc.totals.Total,
		VatBreakdown:   calc.rawRows,
	})
}

// Get loads a document with its lines and VAT breakdown.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Document{}, ErrNotFound
	}
	return s.Q.GetDocument(ctx, docID)
}

// List returns documents matching the filter plus the unfiltered match count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Document, int64, error) {
	arg := listParamsFrom(f)
	total, err := s.Q.CountDocuments(ctx, arg)
	if err != nil {
		return nil, 0, err
	}
	docs, err := s.Q.ListDocuments(ctx, arg)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func listParamsFrom(f ListFilter) ListDocumentsParams {
	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	var customerID uuid.UUID
	if trimmed := strings.TrimSpace(f.CustomerID); trimmed != "" {
		if parsed, err := uuid.Parse(trimmed); err == nil {
			customerID = parsed
		}
	}
	return ListDocumentsParams{
		Kind:       strings.ToLower(strings.TrimSpace(f.Kind)),
		Status:     strings.ToLower(strings.TrimSpace(f.Status)),
		CustomerID: customerID,
		Search:     strings.TrimSpace(f.Search),
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	}
}

// Update replaces the content of a draft and recomputes its totals. The kind
// of an existing document never changes.
func (s *Service) Update(ctx context.Context, id string, in Input) (Document, error) {
	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Document{}, ErrNotFound
	}
	customerID, err := uuid.Parse(strings.TrimSpace(in.CustomerID))
	if err != nil {
		return Document{}, ErrCustomerNotFound
	}
	calc, err := s.compute(in.Lines, in.DiscountType, in.DiscountValue)
	if err != nil {
		return Document{}, err
	}
	return s.Q.UpdateDraft(ctx, UpdateDraftParams{
		ID:             docID,
		CustomerID:     customerID,
		Currency:       s.currencyOr(in.Currency),
		Notes:          strings.TrimSpace(in.Notes),
		DiscountType:   billing.ParseDiscountType(strings.ToLower(strings.TrimSpace(in.DiscountType))),
		DiscountValue:  in.DiscountValue,
		Lines:          calc.lines,
		Subtotal:       calc.totals.Subtotal,
		DiscountAmount: calc.totals.DiscountAmount,
		TaxableAmount:  calc.totals.Taxable,
		VatAmount:      calc.totals.VatAmount,
		Total:          calc.totals.Total,
		VatBreakdown:   calc.rawRows,
	})
}

// Delete removes a draft. Issued documents are voided instead.
func (s *Service) Delete(ctx context.Context, id string) error {
	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return ErrNotFound
	}
	return s.Q.DeleteDraft(ctx, docID)
}

// Issue assigns the next sequential number for the document kind and year,
// stamps the issue date and, for invoices, the due date.
func (s *Service) Issue(ctx context.Context, id string) (Document, error) {
	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Document{}, ErrNotFound
	}
	doc, err := s.Q.GetDocument(ctx, docID)
	if err != nil {
		return Document{}, err
	}
	if doc.Status != StatusDraft {
		return Document{}, ErrNotDraft
	}
	if len(doc.Lines) == 0 {
		return Document{}, ErrNoLines
	}

	now := s.now()
	var due *time.Time
	if doc.Kind == KindInvoice {
		d := now.AddDate(0, 0, s.termDays())
		due = &d
	}
	issued, err := s.Q.IssueDocument(ctx, IssueDocumentParams{
		ID:       docID,
		Prefix:   s.prefixFor(doc.Kind),
		Year:     now.Year(),
		IssuedAt: now,
		DueDate:  due,
	})
	if err != nil {
		return Document{}, err
	}

	if obs.DocumentsIssuedTotal != nil {
		obs.DocumentsIssuedTotal.WithLabelValues(string(issued.Kind)).Inc()
	}
	s.emit(ctx, topicForIssue(issued.Kind), docID, issuedPayload{
		DocumentID:    issued.ID,
		Kind:          string(issued.Kind),
		Number:        issued.Number,
		Total:         issued.Total,
		Currency:      issued.Currency,
		CustomerID:    issued.CustomerID,
		CustomerName:  issued.CustomerName,
		CustomerEmail: issued.CustomerEmail,
		IssuedAt:      now,
		DueDate:       issued.DueDate,
	})
	return issued, nil
}

// Void marks an issued document void. Paid documents stay on the books.
func (s *Service) Void(ctx context.Context, id string) (Document, error) {
	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Document{}, ErrNotFound
	}
	doc, err := s.Q.GetDocument(ctx, docID)
	if err != nil {
		return Document{}, err
	}
	switch doc.Status {
	case StatusIssued:
	case StatusPaid:
		return Document{}, ErrAlreadyPaid
	default:
		return Document{}, ErrNotIssued
	}

	voided, err := s.Q.VoidDocument(ctx, VoidDocumentParams{ID: docID, VoidedAt: s.now()})
	if err != nil {
		return Document{}, err
	}
	if voided.Kind == KindInvoice {
		s.emit(ctx, events.TopicInvoiceVoided, docID, voidedPayload{
			DocumentID:    voided.ID,
			Number:        voided.Number,
			Total:         voided.Total,
			CustomerID:    voided.CustomerID,
			CustomerName:  voided.CustomerName,
			CustomerEmail: voided.CustomerEmail,
		})
	}
	return voided, nil
}

// Convert turns an issued quotation into a fresh invoice draft. The quotation
// keeps a link to the invoice and cannot be converted twice.
func (s *Service) Convert(ctx context.Context, id string) (Document, error) {
	quoteID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Document{}, ErrNotFound
	}
	quote, err := s.Q.GetDocument(ctx, quoteID)
	if err != nil {
		return Document{}, err
	}
	if quote.Kind != KindQuotation {
		return Document{}, ErrNotConvertible
	}
	if quote.Status != StatusIssued {
		return Document{}, ErrNotIssued
	}
	if quote.ConvertedTo != "" {
		return Document{}, ErrAlreadyConverted
	}

	inputs := make([]LineInput, len(quote.Lines))
	for i, ln := range quote.Lines {
		rate := ln.VatRate
		inputs[i] = LineInput{
			Description: ln.Description,
			Quantity:    ln.Quantity,
			UnitPrice:   ln.UnitPrice,
			VatRate:     &rate,
		}
	}
	calc, err := s.compute(inputs, quote.DiscountType, quote.DiscountValue)
	if err != nil {
		return Document{}, err
	}
	customerID, err := uuid.Parse(quote.CustomerID)
	if err != nil {
		return Document{}, ErrCustomerNotFound
	}

	invoice, err := s.Q.ConvertQuotation(ctx, ConvertQuotationParams{
		QuotationID: quoteID,
		Invoice: InsertDocumentParams{
			Kind:           KindInvoice,
			CustomerID:     customerID,
			Currency:       quote.Currency,
			Notes:          quote.Notes,
			DiscountType:   billing.ParseDiscountType(quote.DiscountType),
			DiscountValue:  quote.DiscountValue,
			Lines:          calc.lines,
			Subtotal:       calc.totals.Subtotal,
			DiscountAmount: calc.totals.DiscountAmount,
			TaxableAmount:  calc.totals.Taxable,
			VatAmount:      calc.totals.VatAmount,
			Total:          calc.totals.Total,
			VatBreakdown:   calc.rawRows,
			SourceID:       quoteID,
		},
	})
	if err != nil {
		return Document{}, err
	}

	s.emit(ctx, events.TopicQuotationConverted, quoteID, convertedPayload{
		QuotationID:     quote.ID,
		QuotationNumber: quote.Number,
		InvoiceID:       invoice.ID,
		Total:           invoice.Total,
		CustomerID:      invoice.CustomerID,
		CustomerName:    invoice.CustomerName,
		CustomerEmail:   invoice.CustomerEmail,
	})
	return invoice, nil
}

// RecordPayment settles part or all of an issued invoice. The invoice flips
// to paid once the recorded payments cover the total.
func (s *Service) RecordPayment(ctx context.Context, id string, in PaymentInput) (Payment, Document, error) {
	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Payment{}, Document{}, ErrNotFound
	}
	if !(in.Amount > 0) {
		return Payment{}, Document{}, ErrInvalidAmount
	}
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if method == "" {
		method = "transfer"
	}
	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	payment, doc, err := s.Q.InsertPayment(ctx, InsertPaymentParams{
		DocumentID: docID,
		Amount:     billing.Round2(in.Amount),
		Method:     method,
		Reference:  strings.TrimSpace(in.Reference),
		PaidAt:     paidAt,
		Notes:      strings.TrimSpace(in.Notes),
	})
	if err != nil {
		return Payment{}, Document{}, err
	}

	if obs.PaymentsRecordedTotal != nil {
		obs.PaymentsRecordedTotal.WithLabelValues(method).Inc()
	}
	s.emit(ctx, events.TopicPaymentRecorded, docID, paymentPayload{
		DocumentID:    doc.ID,
		PaymentID:     payment.ID,
		Number:        doc.Number,
		Amount:        payment.Amount,
		Method:        payment.Method,
		BalanceDue:    doc.BalanceDue,
		CustomerID:    doc.CustomerID,
		CustomerName:  doc.CustomerName,
		CustomerEmail: doc.CustomerEmail,
	})
	if doc.Status == StatusPaid {
		s.emit(ctx, events.TopicInvoicePaid, docID, paidPayload{
			DocumentID:    doc.ID,
			Number:        doc.Number,
			Total:         doc.Total,
			CustomerID:    doc.CustomerID,
			CustomerName:  doc.CustomerName,
			CustomerEmail: doc.CustomerEmail,
			PaidAt:        paidAt,
		})
	}
	return payment, doc, nil
}

// Payments lists the payments recorded against a document, newest first.
func (s *Service) Payments(ctx context.Context, id string) ([]Payment, error) {
	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrNotFound
	}
	if _, err := s.Q.GetDocument(ctx, docID); err != nil {
		return nil, err
	}
	return s.Q.ListPayments(ctx, docID)
}

// Preview is the result of a totals calculation without persistence.
type Preview struct {
	Lines          []Line   `json:"lines"`
	Subtotal       float64  `json:"subtotal"`
	DiscountAmount float64  `json:"discountAmount"`
	TaxableAmount  float64  `json:"taxableAmount"`
	VatAmount      float64  `json:"vatAmount"`
	Total          float64  `json:"total"`
	VatBreakdown   []VatRow `json:"vatBreakdown"`
}

// ComputePreview runs the totals calculation over the given lines without
// touching storage. Used by clients to show live totals while editing.
func (s *Service) ComputePreview(lines []LineInput, discountType string, discountValue float64) (Preview, error) {
	calc, err := s.compute(lines, discountType, discountValue)
	if err != nil {
		return Preview{}, err
	}
	out := make([]Line, len(calc.lines))
	for i, ln := range calc.lines {
		out[i] = Line{
			Description: ln.Description,
			Quantity:    ln.Quantity,
			UnitPrice:   ln.UnitPrice,
			VatRate:     ln.VatRate,
			Net:         ln.Net,
		}
	}
	return Preview{
		Lines:          out,
		Subtotal:       calc.totals.Subtotal,
		DiscountAmount: calc.totals.DiscountAmount,
		TaxableAmount:  calc.totals.Taxable,
		VatAmount:      calc.totals.VatAmount,
		Total:          calc.totals.Total,
		VatBreakdown:   calc.breakdown,
	}, nil
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, topic, aggregateID, payload); err != nil {
		zerolog.Ctx(ctx).Err(err).Str("topic", topic).Msg("emit document event")
	}
}

func topicForIssue(kind Kind) string {
	switch kind {
	case KindQuotation:
		return events.TopicQuotationIssued
	case KindCreditNote:
		return events.TopicCreditNoteIssued
	default:
		return events.TopicInvoiceIssued
	}
}

type issuedPayload struct {
	DocumentID    string     `json:"documentId"`
	Kind          string     `json:"kind"`
	Number        string     `json:"number"`
	Total         float64    `json:"total"`
	Currency      string     `json:"currency"`
	CustomerID    string     `json:"customerId"`
	CustomerName  string     `json:"customerName"`
	CustomerEmail string     `json:"customerEmail,omitempty"`
	IssuedAt      time.Time  `json:"issuedAt"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
}

type voidedPayload struct {
	DocumentID    string  `json:"documentId"`
	Number        string  `json:"number"`
	Total         float64 `json:"total"`
	CustomerID    string  `json:"customerId"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail,omitempty"`
}

type convertedPayload struct {
	QuotationID     string  `json:"quotationId"`
	QuotationNumber string  `json:"quotationNumber"`
	InvoiceID       string  `json:"invoiceId"`
	Total           float64 `json:"total"`
	CustomerID      string  `json:"customerId"`
	CustomerName    string  `json:"customerName"`
	CustomerEmail   string  `json:"customerEmail,omitempty"`
}

type paymentPayload struct {
	DocumentID    string  `json:"documentId"`
	PaymentID     string  `json:"paymentId"`
	Number        string  `json:"number"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
	BalanceDue    float64 `json:"balanceDue"`
	CustomerID    string  `json:"customerId"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail,omitempty"`
}

type paidPayload struct {
	DocumentID    string    `json:"documentId"`
	Number        string    `json:"number"`
	Total         float64   `json:"total"`
	CustomerID    string    `json:"customerId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	PaidAt        time.Time `json:"paidAt"`
}
