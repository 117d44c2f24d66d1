package activity

import (
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-faktur/internal/common"
	"github.com/noah-isme/backend-faktur/internal/events"
)

// Handler exposes the activity feed.
type Handler struct {
	Store Store
}

// List returns the feed newest first, filterable by topic and document.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "activity store not configured", nil)
		return
	}
	query := r.URL.Query()
	topic := strings.TrimSpace(query.Get("topic"))
	if topic != "" && !slices.Contains(events.DefaultTopics(), topic) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown topic", nil)
		return
	}
	aggregate := uuid.Nil
	if raw := strings.TrimSpace(query.Get("documentId")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid documentId", nil)
			return
		}
		aggregate = parsed
	}

	page, perPage := common.ParsePagination(r, 50)
	if perPage > 200 {
		perPage = 200
	}
	params := ListActivityParams{
		Topic:       topic,
		AggregateID: aggregate,
		Limit:       int32(perPage),
		Offset:      int32((page - 1) * perPage),
	}
	entries, err := h.Store.ListActivity(r.Context(), params)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load activity", nil)
		return
	}
	total, err := h.Store.CountActivity(r.Context(), params)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to count activity", nil)
		return
	}
	common.JSONList(w, http.StatusOK, entries, common.NewPagination(page, perPage, int(total)))
}
