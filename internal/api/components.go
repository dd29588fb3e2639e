package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campusmis/rubric/internal/rubric"
	"github.com/campusmis/rubric/internal/store"
)

type ComponentsHandler struct {
	store      store.Store
	allocator  *rubric.Allocator
	reconciler *rubric.Reconciler
}

func NewComponentsHandler(s store.Store, alloc *rubric.Allocator, rec *rubric.Reconciler) *ComponentsHandler {
	return &ComponentsHandler{store: s, allocator: alloc, reconciler: rec}
}

type AllocateRequest struct {
	ComponentType string  `json:"component_type"`
	Quantity      int     `json:"quantity"`
	TotalWeight   float64 `json:"total_weight"`
	DisplayOrder  int     `json:"display_order"`
}

func (h *ComponentsHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subject id"})
		return
	}
	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	created, err := h.allocator.AllocateEqualSplit(r.Context(), rubric.EqualSplitRequest{
		SubjectID:    subjectID,
		Type:         store.ComponentType(req.ComponentType),
		Quantity:     req.Quantity,
		TotalWeight:  req.TotalWeight,
		DisplayOrder: req.DisplayOrder,
		Actor:        r.Header.Get("X-Staff-ID"),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"created_components": created})
}

type MidtermSplitRequest struct {
	PracticalWeight   float64 `json:"practical_weight"`
	TheoreticalWeight float64 `json:"theoretical_weight"`
	DisplayOrder      int     `json:"display_order"`
}

func (h *ComponentsHandler) AllocateMidtermSplit(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subject id"})
		return
	}
	var req MidtermSplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	created, err := h.allocator.AllocateMidtermSplit(r.Context(), rubric.MidtermSplitRequest{
		SubjectID:         subjectID,
		PracticalWeight:   req.PracticalWeight,
		TheoreticalWeight: req.TheoreticalWeight,
		DisplayOrder:      req.DisplayOrder,
		Actor:             r.Header.Get("X-Staff-ID"),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"created_components": created})
}

func (h *ComponentsHandler) List(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subject id"})
		return
	}
	components, err := h.store.ComponentsOf(r.Context(), subjectID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if components == nil {
		components = []*store.GradeComponent{}
	}
	writeJSON(w, http.StatusOK, components)
}

func (h *ComponentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid component id"})
		return
	}
	c, err := h.store.GetComponent(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type UpdateComponentRequest struct {
	ComponentType string  `json:"component_type"`
	ComponentName string  `json:"component_name"`
	MaxScore      float64 `json:"max_score"`
	Weight        float64 `json:"weight_percentage"`
	DisplayOrder  int     `json:"display_order"`
}

func (h *ComponentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid component id"})
		return
	}
	var req UpdateComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := h.reconciler.EditComponent(r.Context(), rubric.ComponentEdit{
		ID:           id,
		Type:         store.ComponentType(req.ComponentType),
		Name:         req.ComponentName,
		MaxScore:     req.MaxScore,
		Weight:       req.Weight,
		DisplayOrder: req.DisplayOrder,
		Actor:        r.Header.Get("X-Staff-ID"),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ComponentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid component id"})
		return
	}
	removed, err := h.reconciler.DeleteComponent(r.Context(), id, r.Header.Get("X-Staff-ID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed_component": removed})
}

func subjectParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "subjectID"), 10, 64)
}
