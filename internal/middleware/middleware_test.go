package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crabby-crew/backend/internal/auth"
	"github.com/crabby-crew/backend/internal/config"
	"github.com/crabby-crew/backend/internal/logger"
	"github.com/crabby-crew/backend/internal/models"
)

func TestRecoverWritesInternalError(t *testing.T) {
	h := Recover(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("leaderboard index out of range")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress/u1", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp models.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message != "Internal server error" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestRecoverRethrowsAbort(t *testing.T) {
	h := Recover(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("ErrAbortHandler was swallowed")
}

func TestSessionAttachesUser(t *testing.T) {
	sessions := auth.NewManager(auth.NewMemorySessions(), config.Session{
		Secret:     "test-secret",
		CookieName: "crabby-crew-session",
		MaxAge:     time.Hour,
	})
	login := httptest.NewRecorder()
	if _, err := sessions.Start(context.Background(), login, "user-1"); err != nil {
		t.Fatal(err)
	}

	var got string
	var ok bool
	h := Session(sessions, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = auth.UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || got != "user-1" {
		t.Errorf("user = %q, %v; want user-1", got, ok)
	}

	// No cookie still reaches the handler, without a user.
	got, ok = "", false
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if ok || rec.Code != http.StatusOK {
		t.Errorf("anonymous request: user %q ok %v status %d", got, ok, rec.Code)
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusConflict)
	if rw.statusCode != http.StatusConflict || rec.Code != http.StatusConflict {
		t.Errorf("captured %d, wrote %d; want 409", rw.statusCode, rec.Code)
	}

	h := Logger(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("Logger status = %d, want 418", rec.Code)
	}
}
