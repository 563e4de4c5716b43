package admissions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

func TestHandlerSubmitAndReview(t *testing.T) {
	h := newHarness(t, nil)
	router := chi.NewRouter()
	router.Route("/applications", NewHandler(nil, h.svc).MountRoutes)

	body := `{"fullName":"A","email":"a@x.edu","phoneNumber":"9876543210","desiredCourse":"Computer Science","previousQualification":"12th Grade","previousGrade":"90"}`
	req := httptest.NewRequest(http.MethodPost, "/applications/submit", strings.NewReader(body))
	req.Header.Set(IdempotencyHeader, "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Success bool        `json:"success"`
		Data    Application `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	id := env.Data.ID.String()

	review := `{"applicationStatus":"APPROVED"}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/applications/"+id+"/review", strings.NewReader(review)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/applications/"+id+"/review", strings.NewReader(review))
	req = req.WithContext(shared.ContextWithActor(req.Context(), superAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), h.notifier.sent[0].TemporaryPassword)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/applications/status/approved", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"generatedRollNumber"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/applications/status/pending", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
