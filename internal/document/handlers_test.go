package document_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-faktur/internal/document"
)

func newHandler(q document.Querier) *document.Handler {
	return &document.Handler{
		Svc:      newService(q, nil),
		Validate: validator.New(),
	}
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error.Code
}

func TestPreviewTotalsHandler(t *testing.T) {
	handler := newHandler(&stubQueries{})

	body := `{"lines":[{"description":"Kabel listrik","quantity":10,"unitPrice":75,"vatRate":18}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/preview/totals", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.PreviewTotals(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data document.Preview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 750.0, resp.Data.Subtotal)
	require.Equal(t, 0.0, resp.Data.DiscountAmount)
	require.Equal(t, 750.0, resp.Data.TaxableAmount)
	require.Equal(t, 135.0, resp.Data.VatAmount)
	require.Equal(t, 885.0, resp.Data.Total)
	require.Len(t, resp.Data.Lines, 1)
	require.Equal(t, 750.0, resp.Data.Lines[0].Net)
}

func TestCreateDocumentHandler(t *testing.T) {
	q := &stubQueries{
		insertDocument: func(_ context.Context, arg document.InsertDocumentParams) (document.Document, error) {
			return document.Document{
				ID:       uuid.NewString(),
				Kind:     arg.Kind,
				Status:   document.StatusDraft,
				Currency: arg.Currency,
				Subtotal: arg.Subtotal,
				Total:    arg.Total,
			}, nil
		},
	}
	handler := newHandler(q)

	body := `{"kind":"invoice","customerId":"` + uuid.NewString() + `","lines":[{"description":"Jasa instalasi","quantity":1,"unitPrice":1000,"vatRate":18}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data document.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ID)
	require.Equal(t, document.KindInvoice, resp.Data.Kind)
	require.Equal(t, document.StatusDraft, resp.Data.Status)
	require.Equal(t, 1180.0, resp.Data.Total)
}

func TestCreateDocumentRequiresCustomer(t *testing.T) {
	handler := newHandler(&stubQueries{})

	body := `{"kind":"invoice","lines":[{"description":"Jasa","quantity":1,"unitPrice":100}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION", decodeError(t, rec.Body.Bytes()))
}

func TestGetDocumentMissing(t *testing.T) {
	q := &stubQueries{
		getDocument: func(_ context.Context, _ uuid.UUID) (document.Document, error) {
			return document.Document{}, document.ErrNotFound
		},
	}
	handler := newHandler(q)

	id := uuid.NewString()
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+id, nil), "documentId", id)
	rec := httptest.NewRecorder()
	handler.Get(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", decodeError(t, rec.Body.Bytes()))
}

func TestIssueRejectsIssuedDocument(t *testing.T) {
	q := &stubQueries{
		getDocument: func(_ context.Context, id uuid.UUID) (document.Document, error) {
			return document.Document{ID: id.String(), Kind: document.KindInvoice, Status: document.StatusIssued}, nil
		},
	}
	handler := newHandler(q)

	id := uuid.NewString()
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+id+"/issue", nil), "documentId", id)
	rec := httptest.NewRecorder()
	handler.Issue(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_STATE", decodeError(t, rec.Body.Bytes()))
}

func TestRecordPaymentOverpaid(t *testing.T) {
	q := &stubQueries{
		insertPayment: func(_ context.Context, _ document.InsertPaymentParams) (document.Payment, document.Document, error) {
			return document.Payment{}, document.Document{}, document.ErrOverpaid
		},
	}
	handler := newHandler(q)

	id := uuid.NewString()
	body := `{"amount":9000,"method":"transfer"}`
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+id+"/payments", strings.NewReader(body)), "documentId", id)
	rec := httptest.NewRecorder()
	handler.RecordPayment(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION", decodeError(t, rec.Body.Bytes()))
}

func TestRecordPaymentParsesPaidAt(t *testing.T) {
	var captured document.InsertPaymentParams
	q := &stubQueries{
		insertPayment: func(_ context.Context, arg document.InsertPaymentParams) (document.Payment, document.Document, error) {
			captured = arg
			return document.Payment{ID: uuid.NewString(), Amount: arg.Amount},
				document.Document{ID: arg.DocumentID.String(), Status: document.StatusIssued}, nil
		},
	}
	handler := newHandler(q)

	id := uuid.NewString()
	body := `{"amount":500,"method":"cash","paidAt":"2026-03-01"}`
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+id+"/payments", strings.NewReader(body)), "documentId", id)
	rec := httptest.NewRecorder()
	handler.RecordPayment(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Equal(t, "cash", captured.Method)
	require.Equal(t, 2026, captured.PaidAt.Year())
	require.Equal(t, 1, captured.PaidAt.Day())
}

func TestListRejectsUnknownKind(t *testing.T) {
	handler := newHandler(&stubQueries{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?kind=receipt", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDocumentsPagination(t *testing.T) {
	q := &stubQueries{
		listDocuments: func(_ context.Context, arg document.ListDocumentsParams) ([]document.Document, error) {
			require.Equal(t, "invoice", arg.Kind)
			require.Equal(t, "issued", arg.Status)
			return []document.Document{{ID: uuid.NewString(), Kind: document.KindInvoice, Status: document.StatusIssued}}, nil
		},
		countDocuments: func(_ context.Context, _ document.ListDocumentsParams) (int64, error) {
			return 1, nil
		},
	}
	handler := newHandler(q)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?kind=invoice&status=issued", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []document.Document `json:"data"`
		Pagination struct {
			TotalItems int `json:"total_items"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, 1, resp.Pagination.TotalItems)
	require.Equal(t, 1, resp.Pagination.TotalPages)
}
