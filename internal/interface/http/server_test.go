package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnmtz09/yonna-akademia/internal/app"
	"github.com/ivnmtz09/yonna-akademia/internal/application/command"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/persistence/memory"
	"github.com/ivnmtz09/yonna-akademia/internal/interface/http/handlers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool               `json:"success"`
	Data    json.RawMessage    `json:"data"`
	Error   *handlers.APIError `json:"error"`
}

type harness struct {
	t        *testing.T
	srv      *Server
	app      *app.App
	verifier *handlers.TokenVerifier
	admin    *user.User
	student  *user.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	a, err := app.New(app.MemoryRepositories(memory.NewStore()), app.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	verifier := handlers.NewTokenVerifier("test-secret", "yonna-test")
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	srv, err := NewServer(cfg, Dependencies{App: a, Verifier: verifier})
	require.NoError(t, err)

	h := &harness{t: t, srv: srv, app: a, verifier: verifier}
	ctx := context.Background()
	h.admin, err = a.Commands.Users.Register(ctx, command.RegisterUserCommand{Email: "admin@example.com", Role: "admin"})
	require.NoError(t, err)
	h.student, err = a.Commands.Users.Register(ctx, command.RegisterUserCommand{Email: "student@example.com"})
	require.NoError(t, err)
	return h
}

func (h *harness) do(method, path, userID string, body any) (int, envelope) {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := h.verifier.Issue(userID, time.Hour)
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)

	var env envelope
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, env := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestAuth_RequiresValidToken(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(http.MethodGet, "/api/v1/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "missing_token", env.Error.Code)

	other := handlers.NewTokenVerifier("other-secret", "yonna-test")
	token, err := other.Issue(h.student.ID, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQuizFlow(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(http.MethodPost, "/api/v1/courses", h.admin.ID, map[string]any{"title": "Wayuunaiki I"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	courseID := decode[map[string]any](t, env)["id"].(string)

	code, env = h.do(http.MethodPost, "/api/v1/courses/"+courseID+"/quizzes", h.admin.ID, map[string]any{"title": "Greetings"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	quizID := decode[map[string]any](t, env)["id"].(string)

	code, _ = h.do(http.MethodPost, "/api/v1/courses/"+courseID+"/enroll", h.student.ID, nil)
	require.Equal(t, http.StatusCreated, code)

	code, env = h.do(http.MethodPost, "/api/v1/quizzes/"+quizID+"/attempts", h.student.ID, map[string]any{"score": 90})
	require.Equal(t, http.StatusCreated, code, env.Error)
	res := decode[submitAttemptResponse](t, env)
	assert.True(t, res.Attempt.Passed)
	assert.Equal(t, 50, res.XP)
	assert.Equal(t, 100.0, res.Progress.Percentage)
	assert.True(t, res.Progress.Completed)

	code, env = h.do(http.MethodGet, "/api/v1/notifications/unread-count", h.student.ID, nil)
	require.Equal(t, http.StatusOK, code)
	unread := int(decode[map[string]any](t, env)["count"].(float64))
	assert.Positive(t, unread)

	code, env = h.do(http.MethodPost, "/api/v1/notifications/read-all", h.student.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(unread), decode[map[string]any](t, env)["marked"])

	code, env = h.do(http.MethodGet, "/api/v1/stats/overview", h.student.ID, nil)
	require.Equal(t, http.StatusOK, code)
	overview := decode[map[string]any](t, env)
	assert.Equal(t, float64(50), overview["xp"])
	assert.Equal(t, float64(50), overview["weekly_xp"])

	code, env = h.do(http.MethodGet, "/api/v1/progress", h.student.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]map[string]any](t, env), 1)
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(http.MethodPost, "/api/v1/courses", h.student.ID, map[string]any{"title": "Nope"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", env.Error.Code)

	code, env = h.do(http.MethodPost, "/api/v1/courses", h.admin.ID, map[string]any{"title": "Too hard", "level_required": 11})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", env.Error.Code)

	code, env = h.do(http.MethodPost, "/api/v1/quizzes/unknown/attempts", h.student.ID, map[string]any{"score": 50})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Code)

	code, _ = h.do(http.MethodPost, "/api/v1/quizzes/unknown/attempts", h.student.ID, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = h.do(http.MethodPost, "/api/v1/courses", h.admin.ID, map[string]any{"title": "Once"})
	require.Equal(t, http.StatusCreated, code)
	courseID := decode[map[string]any](t, env)["id"].(string)
	code, _ = h.do(http.MethodPost, "/api/v1/courses/"+courseID+"/enroll", h.student.ID, nil)
	require.Equal(t, http.StatusCreated, code)
	code, env = h.do(http.MethodPost, "/api/v1/courses/"+courseID+"/enroll", h.student.ID, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_exists", env.Error.Code)

	code, _ = h.do(http.MethodPost, "/api/v1/users/"+h.student.ID+"/xp", h.admin.ID, map[string]any{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRecovery_NotifiesAdmins(t *testing.T) {
	h := newHarness(t)
	h.srv.engine.GET("/boom", func(*gin.Context) { panic("kaboom") })

	code, env := h.do(http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal_server_error", env.Error.Code)

	n, err := h.app.Queries.Notifications.UnreadCount(context.Background(), h.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = h.app.Queries.Notifications.UnreadCount(context.Background(), h.student.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStatusFor(t *testing.T) {
	status, _ := handlers.StatusFor(context.Canceled)
	assert.Equal(t, http.StatusInternalServerError, status)
}
