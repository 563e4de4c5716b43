package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, *fixture) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, NewRedisDenylist(client, ""), ServiceConfig{})
	h := NewHandler(nil, f.svc, nil)
	r := chi.NewRouter()
	r.Use(Middleware(f.svc, nil))
	r.Route("/auth", h.MountRoutes)
	r.Route("/admin/auth", h.MountAdminRoutes)
	return r, f
}

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, httpx.Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func loginToken(t *testing.T, h http.Handler, path, body string) string {
	t.Helper()
	rec, env := doJSON(t, h, http.MethodPost, path, "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	return data["token"].(string)
}

func TestLoginHandlerUniformFailure(t *testing.T) {
	router, f := newTestRouter(t)
	f.addStudent(t, "A", "a@x.edu", "20260001", "student-pass")

	wrong, wrongEnv := doJSON(t, router, http.MethodPost, "/auth/login", "", `{"email":"a@x.edu","password":"nope"}`)
	ghost, ghostEnv := doJSON(t, router, http.MethodPost, "/auth/login", "", `{"email":"ghost@x.edu","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, ghost.Code)
	assert.Equal(t, httpx.MessageInvalidCredentials, wrongEnv.Message)
	assert.Equal(t, wrongEnv, ghostEnv)
}

func TestMeRequiresToken(t *testing.T) {
	router, f := newTestRouter(t)
	f.addStudent(t, "A", "a@x.edu", "20260001", "student-pass")

	rec, env := doJSON(t, router, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	rec, _ = doJSON(t, router, http.MethodGet, "/auth/me", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := loginToken(t, router, "/auth/student-login", `{"identifier":"20260001","password":"student-pass"}`)
	rec, env = doJSON(t, router, http.MethodGet, "/auth/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Contains(t, rec.Body.String(), `"email":"a@x.edu"`)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestLogoutInvalidatesBearer(t *testing.T) {
	router, f := newTestRouter(t)
	f.addAdmin(t, "dean", "dean@u.edu", "admin-pass", shared.RoleSuperAdmin, true)

	token := loginToken(t, router, "/admin/auth/login", `{"username":"dean","password":"admin-pass"}`)
	rec, _ := doJSON(t, router, http.MethodGet, "/admin/auth/validate-token", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/admin/auth/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, router, http.MethodGet, "/admin/auth/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = doJSON(t, router, http.MethodGet, "/admin/auth/validate-token", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterHandlerConflict(t *testing.T) {
	router, _ := newTestRouter(t)
	body := `{"name":"A","email":"a@x.edu","password":"initial-pass","rollNo":"20260001","department":"Computer Science","year":1,"semester":1}`

	rec, env := doJSON(t, router, http.MethodPost, "/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	rec, _ = doJSON(t, router, http.MethodPost, "/auth/register", "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = doJSON(t, router, http.MethodPost, "/auth/register", "", `{"name":"B","email":"bad","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "email")
}

func TestForgotPasswordHandlerGenericMessage(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, env := doJSON(t, router, http.MethodPost, "/auth/forgot-password", "", `{"email":"ghost@x.edu"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ForgotPasswordMessage, env.Message)
}
