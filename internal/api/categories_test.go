package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditCategoryTotal(t *testing.T) {
	ts, router := newTestRouter(t)
	seedComponent(t, ts, 42, "homework", "Homework 1", 5, 0)
	seedComponent(t, ts, 42, "homework", "Homework 2", 5, 1)
	seedComponent(t, ts, 42, "homework", "Homework 3", 5, 2)
	seedComponent(t, ts, 42, "exam", "Final", 40, 100)

	rr := doRequest(t, router, http.MethodPut, "/api/v1/subjects/42/categories/homework",
		EditCategoryTotalRequest{TotalWeight: 30})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3.0, decodeBody(t, rr)["updated_count"])
	assert.Equal(t, 70.0, ts.totalOf(42))

	for _, c := range ts.sortedOf(42) {
		if c.Type == "homework" {
			assert.Equal(t, 10.0, c.Weight)
			assert.Equal(t, c.Weight, c.MaxScore)
		}
	}
}

func TestEditCategoryTotalCeiling(t *testing.T) {
	ts, router := newTestRouter(t)
	seedComponent(t, ts, 42, "homework", "Homework 1", 10, 0)
	seedComponent(t, ts, 42, "exam", "Final", 90, 100)

	rr := doRequest(t, router, http.MethodPut, "/api/v1/subjects/42/categories/homework",
		EditCategoryTotalRequest{TotalWeight: 20})
	require.Equal(t, http.StatusConflict, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, "ceiling_exceeded", body["error"])
	assert.Equal(t, 110.0, body["would_be_total"])
	assert.Equal(t, 100.0, ts.totalOf(42))
}

func TestEditCategoryTotalUnknownCategory(t *testing.T) {
	_, router := newTestRouter(t)

	rr := doRequest(t, router, http.MethodPut, "/api/v1/subjects/42/categories/quiz",
		EditCategoryTotalRequest{TotalWeight: 10})
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteCategoryRequiresAdminToken(t *testing.T) {
	ts, router := newTestRouter(t)
	seedComponent(t, ts, 42, "quiz", "Quiz 1", 10, 0)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/subjects/42/categories/quiz", nil)
	req.Header.Set("X-Staff-ID", "staff-7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 10.0, ts.totalOf(42))

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/subjects/42/categories/quiz", nil)
	req.Header.Set("X-Staff-ID", "staff-7")
	req.Header.Set("Authorization", "Bearer test-admin-token")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, 1.0, body["removed_count"])
	assert.Equal(t, 0.0, ts.totalOf(42))
}

func TestDeleteCategoryEmptyIsNoop(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/subjects/42/categories/quiz", nil)
	req.Header.Set("X-Staff-ID", "staff-7")
	req.Header.Set("Authorization", "Bearer test-admin-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0.0, decodeBody(t, rr)["removed_count"])
}

func TestReorderCategories(t *testing.T) {
	ts, router := newTestRouter(t)
	seedComponent(t, ts, 42, "homework", "Homework 1", 5, 0)
	seedComponent(t, ts, 42, "homework", "Homework 2", 5, 1)
	seedComponent(t, ts, 42, "exam", "Final", 40, 100)

	rr := doRequest(t, router, http.MethodPost, "/api/v1/subjects/42/categories/reorder",
		ReorderRequest{Order: []string{"exam", "homework"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3.0, decodeBody(t, rr)["reordered_count"])

	ordered := ts.sortedOf(42)
	require.Len(t, ordered, 3)
	assert.Equal(t, "Final", ordered[0].Name)
	assert.Equal(t, "Homework 1", ordered[1].Name)
	assert.Equal(t, "Homework 2", ordered[2].Name)
}

func TestReorderEmptyOrderRejected(t *testing.T) {
	_, router := newTestRouter(t)

	rr := doRequest(t, router, http.MethodPost, "/api/v1/subjects/42/categories/reorder",
		ReorderRequest{Order: []string{}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "empty_input", decodeBody(t, rr)["error"])
}

func TestReorderUnknownTypeRejected(t *testing.T) {
	ts, router := newTestRouter(t)
	seedComponent(t, ts, 42, "homework", "Homework 1", 5, 0)

	rr := doRequest(t, router, http.MethodPost, "/api/v1/subjects/42/categories/reorder",
		ReorderRequest{Order: []string{"attendance"}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, ts.sortedOf(42)[0].DisplayOrder)
}

func TestHealthEndpoint(t *testing.T) {
	router := NewMetricsRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestInvalidSubjectIDRejected(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subjects/not-a-number/components", nil)
	req.Header.Set("X-Staff-ID", "staff-7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}
