package api

import (
	"net/http"
	"strconv"

	"github.com/campusmis/rubric/internal/store"
)

type SubjectsHandler struct {
	store store.Store
}

func NewSubjectsHandler(s store.Store) *SubjectsHandler {
	return &SubjectsHandler{store: s}
}

func (h *SubjectsHandler) Weight(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subject id"})
		return
	}
	summary, err := h.store.WeightSummary(r.Context(), subjectID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if summary.Categories == nil {
		summary.Categories = []store.CategoryWeight{}
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *SubjectsHandler) Events(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subject id"})
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}
	events, err := h.store.GetRubricEvents(r.Context(), subjectID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if events == nil {
		events = []*store.RubricEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
