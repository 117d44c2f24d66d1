package pdf

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-faktur/internal/common"
	"github.com/noah-isme/backend-faktur/internal/document"
	"github.com/noah-isme/backend-faktur/internal/obs"
)

// Handler serves rendered document PDFs.
type Handler struct {
	Svc      *document.Service
	Renderer Renderer
}

// Render streams the document as a PDF attachment.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pdf service not configured", nil)
		return
	}
	doc, err := h.Svc.Get(r.Context(), chi.URLParam(r, "documentId"))
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "document not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load document", nil)
		return
	}

	start := time.Now()
	data, err := h.Renderer.Render(doc)
	if obs.PDFRenderDuration != nil {
		obs.PDFRenderDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	if err != nil {
		if obs.PDFRenderTotal != nil {
			obs.PDFRenderTotal.WithLabelValues(string(doc.Kind), "error").Inc()
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to render pdf", nil)
		return
	}
	if obs.PDFRenderTotal != nil {
		obs.PDFRenderTotal.WithLabelValues(string(doc.Kind), "ok").Inc()
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+fileName(doc)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func fileName(doc document.Document) string {
	if doc.Number != "" {
		return doc.Number + ".pdf"
	}
	return "draf-" + doc.ID + ".pdf"
}
