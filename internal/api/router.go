package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusmis/rubric/internal/rubric"
	"github.com/campusmis/rubric/internal/store"
)

func NewRouter(s store.Store, alloc *rubric.Allocator, rec *rubric.Reconciler, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	components := NewComponentsHandler(s, alloc, rec)
	categories := NewCategoriesHandler(rec)
	subjects := NewSubjectsHandler(s)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(StaffIDMiddleware)

		r.Route("/subjects/{subjectID}", func(r chi.Router) {
			r.Post("/components", components.Allocate)
			r.Post("/components/midterm-split", components.AllocateMidtermSplit)
			r.Get("/components", components.List)
			r.Get("/weight", subjects.Weight)
			r.Get("/events", subjects.Events)

			r.Put("/categories/{type}", categories.EditTotal)
			r.Post("/categories/reorder", categories.Reorder)

			r.Group(func(r chi.Router) {
				r.Use(AdminAuthMiddleware(adminToken))
				r.Delete("/categories/{type}", categories.Delete)
			})
		})

		r.Get("/components/{id}", components.Get)
		r.Patch("/components/{id}", components.Update)
		r.Delete("/components/{id}", components.Delete)
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeEngineError maps engine errors to the wire taxonomy: recoverable
// validation and invariant errors get 4xx bodies with a stable error code,
// consistency failures and storage errors surface as 500s.
func writeEngineError(w http.ResponseWriter, err error) {
	var ceiling *rubric.CeilingError
	if errors.As(err, &ceiling) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":          "ceiling_exceeded",
			"detail":         ceiling.Error(),
			"would_be_total": ceiling.WouldBeTotal,
		})
		return
	}
	var rangeErr *rubric.RangeError
	if errors.As(err, &rangeErr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid_range", "detail": rangeErr.Error(),
		})
		return
	}
	var missing *rubric.MissingFieldError
	if errors.As(err, &missing) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "missing_field", "detail": missing.Error(),
		})
		return
	}
	if errors.Is(err, rubric.ErrEmptyOrder) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "empty_input", "detail": err.Error(),
		})
		return
	}
	var consistency *rubric.ConsistencyError
	if errors.As(err, &consistency) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "consistency_failure", "detail": consistency.Error(),
		})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "component not found"})
		return
	}
	if errors.Is(err, store.ErrCategoryNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "category has no components"})
		return
	}
	if errors.Is(err, store.ErrUnknownType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid_range", "detail": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
