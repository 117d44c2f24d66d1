package document

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-faktur/internal/common"
)

// Handler exposes the document lifecycle endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type linePayload struct {
	Description string   `json:"description" validate:"required,min=1,max=500"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unitPrice"`
	VatRate     *float64 `json:"vatRate" validate:"omitempty,gte=0"`
}

type documentPayload struct {
	Kind          string        `json:"kind" validate:"omitempty,oneof=quotation invoice credit_note"`
	CustomerID    string        `json:"customerId" validate:"required,uuid"`
	Currency      string        `json:"currency" validate:"omitempty,len=3"`
	Notes         string        `json:"notes" validate:"omitempty,max=2000"`
	DiscountType  string        `json:"discountType" validate:"omitempty,oneof=none percent fixed"`
	DiscountValue float64       `json:"discountValue" validate:"gte=0"`
	Lines         []linePayload `json:"lines" validate:"max=200,dive"`
}

type paymentPayload struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"method" validate:"omitempty,oneof=transfer cash card qris ewallet other"`
	Reference string  `json:"reference" validate:"omitempty,max=100"`
	PaidAt    string  `json:"paidAt" validate:"omitempty,datetime=2006-01-02"`
	Notes     string  `json:"notes" validate:"omitempty,max=500"`
}

type previewPayload struct {
	Lines         []linePayload `json:"lines" validate:"max=200,dive"`
	DiscountType  string        `json:"discountType" validate:"omitempty,oneof=none percent fixed"`
	DiscountValue float64       `json:"discountValue" validate:"gte=0"`
}

func linesInput(lines []linePayload) []LineInput {
	out := make([]LineInput, len(lines))
	for i, ln := range lines {
		out[i] = LineInput{
			Description: ln.Description,
			Quantity:    ln.Quantity,
			UnitPrice:   ln.UnitPrice,
			VatRate:     ln.VatRate,
		}
	}
	return out
}

func (p documentPayload) input() Input {
	return Input{
		Kind:          p.Kind,
		CustomerID:    p.CustomerID,
		Currency:      p.Currency,
		Notes:         p.Notes,
		DiscountType:  p.DiscountType,
		DiscountValue: p.DiscountValue,
		Lines:         linesInput(p.Lines),
	}
}

func (h *Handler) decodeDocument(w http.ResponseWriter, r *http.Request) (documentPayload, bool) {
	var payload documentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return payload, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", err.Error())
			return payload, false
		}
	}
	return payload, true
}

// Create stores a new draft document.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	payload, ok := h.decodeDocument(w, r)
	if !ok {
		return
	}
	created, err := h.Svc.Create(r.Context(), payload.input())
	if err != nil {
		writeDocumentError(w, err, "failed to create document")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Get returns a document with lines and VAT breakdown.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	doc, err := h.Svc.Get(r.Context(), chi.URLParam(r, "documentId"))
	if err != nil {
		writeDocumentError(w, err, "failed to load document")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// List returns a paginated document collection, filterable by kind, status,
// customer and a number or customer name search.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	query := r.URL.Query()
	if kind := query.Get("kind"); kind != "" {
		if _, err := ParseKind(kind); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown document kind", nil)
			return
		}
	}
	if status := query.Get("status"); status != "" && !validStatus(status) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown document status", nil)
		return
	}
	if customerID := query.Get("customerId"); customerID != "" {
		if _, err := uuid.Parse(customerID); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer id", nil)
			return
		}
	}

	page, perPage := common.ParsePagination(r, 20)
	docs, total, err := h.Svc.List(r.Context(), ListFilter{
		Kind:       query.Get("kind"),
		Status:     query.Get("status"),
		CustomerID: query.Get("customerId"),
		Search:     query.Get("q"),
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list documents", nil)
		return
	}
	common.JSONList(w, http.StatusOK, docs, common.NewPagination(page, perPage, int(total)))
}

// Update replaces the content of a draft.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	payload, ok := h.decodeDocument(w, r)
	if !ok {
		return
	}
	updated, err := h.Svc.Update(r.Context(), chi.URLParam(r, "documentId"), payload.input())
	if err != nil {
		writeDocumentError(w, err, "failed to update document")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// Delete removes a draft.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "documentId")); err != nil {
		writeDocumentError(w, err, "failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Issue assigns a number and flips the document to issued.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	issued, err := h.Svc.Issue(r.Context(), chi.URLParam(r, "documentId"))
	if err != nil {
		writeDocumentError(w, err, "failed to issue document")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": issued})
}

// Void marks an issued document void.
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	voided, err := h.Svc.Void(r.Context(), chi.URLParam(r, "documentId"))
	if err != nil {
		writeDocumentError(w, err, "failed to void document")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": voided})
}

// Convert turns an issued quotation into an invoice draft.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	invoice, err := h.Svc.Convert(r.Context(), chi.URLParam(r, "documentId"))
	if err != nil {
		writeDocumentError(w, err, "failed to convert quotation")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": invoice})
}

// RecordPayment settles part or all of an issued invoice.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	var payload paymentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", err.Error())
			return
		}
	}
	var paidAt time.Time
	if payload.PaidAt != "" {
		parsed, err := time.Parse("2006-01-02", payload.PaidAt)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid paidAt date", nil)
			return
		}
		paidAt = parsed
	}

	payment, doc, err := h.Svc.RecordPayment(r.Context(), chi.URLParam(r, "documentId"), PaymentInput{
		Amount:    payload.Amount,
		Method:    payload.Method,
		Reference: payload.Reference,
		PaidAt:    paidAt,
		Notes:     payload.Notes,
	})
	if err != nil {
		writeDocumentError(w, err, "failed to record payment")
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"payment":  payment,
		"document": doc,
	}})
}

// ListPayments returns the payments recorded against a document.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	payments, err := h.Svc.Payments(r.Context(), chi.URLParam(r, "documentId"))
	if err != nil {
		writeDocumentError(w, err, "failed to list payments")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": payments})
}

// PreviewTotals runs the totals calculation without persisting anything.
func (h *Handler) PreviewTotals(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	var payload previewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", err.Error())
			return
		}
	}
	preview, err := h.Svc.ComputePreview(linesInput(payload.Lines), payload.DiscountType, payload.DiscountValue)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute totals", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": preview})
}

func validStatus(s string) bool {
	switch Status(s) {
	case StatusDraft, StatusIssued, StatusPaid, StatusVoid:
		return true
	default:
		return false
	}
}

func writeDocumentError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "document not found", nil)
	case errors.Is(err, ErrUnknownKind):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "unknown document kind", nil)
	case errors.Is(err, ErrCustomerNotFound):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "customer not found", nil)
	case errors.Is(err, ErrNoLines):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "document has no lines", nil)
	case errors.Is(err, ErrInvalidAmount):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "payment amount must be positive", nil)
	case errors.Is(err, ErrOverpaid):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "payment exceeds balance due", nil)
	case errors.Is(err, ErrNotDraft):
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATE", "only drafts can be modified", nil)
	case errors.Is(err, ErrNotIssued):
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATE", "document is not issued", nil)
	case errors.Is(err, ErrAlreadyPaid):
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATE", "document is already paid", nil)
	case errors.Is(err, ErrNotConvertible):
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATE", "only quotations can be converted", nil)
	case errors.Is(err, ErrNotInvoice):
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATE", "payments apply to invoices only", nil)
	case errors.Is(err, ErrAlreadyConverted):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "quotation already converted", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}
