package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusmis/rubric/internal/rubric"
	"github.com/campusmis/rubric/internal/store"
)

type CategoriesHandler struct {
	reconciler *rubric.Reconciler
}

func NewCategoriesHandler(rec *rubric.Reconciler) *CategoriesHandler {
	return &CategoriesHandler{reconciler: rec}
}

type EditCategoryTotalRequest struct {
	TotalWeight float64 `json:"total_weight"`
}

func (h *CategoriesHandler) EditTotal(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subject id"})
		return
	}
	var req EditCategoryTotalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := h.reconciler.EditCategoryTotal(r.Context(), subjectID,
		store.ComponentType(chi.URLParam(r, "type")), req.TotalWeight,
		r.Header.Get("X-Staff-ID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated_count": updated})
}

func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subject id"})
		return
	}
	removed, err := h.reconciler.DeleteCategory(r.Context(), subjectID,
		store.ComponentType(chi.URLParam(r, "type")),
		r.Header.Get("X-Staff-ID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"removed_count":      len(removed),
		"removed_components": removed,
	})
}

type ReorderRequest struct {
	Order []string `json:"order"`
}

func (h *CategoriesHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subject id"})
		return
	}
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ordered := make([]store.ComponentType, len(req.Order))
	for i, s := range req.Order {
		ordered[i] = store.ComponentType(s)
	}
	reordered, err := h.reconciler.ReorderCategories(r.Context(), subjectID, ordered,
		r.Header.Get("X-Staff-ID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reordered_count": reordered})
}
