package pdf_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-faktur/internal/document"
	"github.com/noah-isme/backend-faktur/internal/pdf"
)

func sampleCompany() pdf.Company {
	return pdf.Company{
		Name:    "PT Maju Bersama",
		Address: "Jl. Sudirman No. 10, Jakarta Selatan 12190",
		TaxID:   "01.234.567.8-901.000",
		Email:   "finance@majubersama.co.id",
	}
}

func sampleInvoice() document.Document {
	issued := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	due := issued.AddDate(0, 0, 14)
	return document.Document{
		ID:            uuid.NewString(),
		Kind:          document.KindInvoice,
		Status:        document.StatusIssued,
		Number:        "INV-2026-0042",
		CustomerID:    uuid.NewString(),
		CustomerName:  "PT Sinar Abadi",
		CustomerEmail: "finance@sinarabadi.co.id",
		Currency:      "IDR",
		Notes:         "Pembayaran melalui transfer ke rekening BCA 123-456-7890.",
		Lines: []document.Line{
			{ID: uuid.NewString(), Description: "Jasa konsultasi", Quantity: 10, UnitPrice: 75, VatRate: 0.18, Net: 750},
			{ID: uuid.NewString(), Description: "Lisensi perangkat lunak", Quantity: 1, UnitPrice: 250, VatRate: 0.11, Net: 250},
		},
		Subtotal:       1000,
		DiscountAmount: 100,
		TaxableAmount:  900,
		VatAmount:      146.25,
		Total:          1046.25,
		AmountPaid:     500,
		BalanceDue:     546.25,
		VatBreakdown: []document.VatRow{
			{Rate: 0.11, DisplayRate: "11%", NetAmount: 225, VatAmount: 24.75},
			{Rate: 0.18, DisplayRate: "18%", NetAmount: 675, VatAmount: 121.5},
		},
		IssuedAt: &issued,
		DueDate:  &due,
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := pdf.Renderer{Company: sampleCompany()}

	data, err := r.Render(sampleInvoice())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "output should start with the PDF magic")
	require.Greater(t, len(data), 1000)
}

func TestRenderDraftWithoutNumber(t *testing.T) {
	r := pdf.Renderer{Company: sampleCompany()}
	doc := sampleInvoice()
	doc.Kind = document.KindQuotation
	doc.Status = document.StatusDraft
	doc.Number = ""
	doc.IssuedAt = nil
	doc.DueDate = nil
	doc.AmountPaid = 0
	doc.BalanceDue = doc.Total

	data, err := r.Render(doc)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

type stubQueries struct {
	document.Querier
	get func(ctx context.Context, id uuid.UUID) (document.Document, error)
}

func (s stubQueries) GetDocument(ctx context.Context, id uuid.UUID) (document.Document, error) {
	return s.get(ctx, id)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestRenderHandlerServesPDF(t *testing.T) {
	doc := sampleInvoice()
	h := &pdf.Handler{
		Svc: &document.Service{Q: stubQueries{get: func(ctx context.Context, id uuid.UUID) (document.Document, error) {
			require.Equal(t, doc.ID, id.String())
			return doc, nil
		}}},
		Renderer: pdf.Renderer{Company: sampleCompany()},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID+"/pdf", nil)
	req = withURLParam(req, "documentId", doc.ID)
	rec := httptest.NewRecorder()
	h.Render(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "INV-2026-0042.pdf")
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestRenderHandlerMissingDocument(t *testing.T) {
	h := &pdf.Handler{
		Svc: &document.Service{Q: stubQueries{get: func(ctx context.Context, id uuid.UUID) (document.Document, error) {
			return document.Document{}, document.ErrNotFound
		}}},
		Renderer: pdf.Renderer{Company: sampleCompany()},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+uuid.NewString()+"/pdf", nil)
	req = withURLParam(req, "documentId", uuid.NewString())
	rec := httptest.NewRecorder()
	h.Render(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
}
