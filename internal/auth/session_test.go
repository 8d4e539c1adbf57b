package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crabby-crew/backend/internal/config"
)

func testSessionConfig() config.Session {
	return config.Session{
		Secret:     "test-secret",
		CookieName: "crabby-crew-session",
		MaxAge:     time.Hour,
	}
}

func TestMemorySessionsExpiry(t *testing.T) {
	store := NewMemorySessions()
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	store.Create(ctx, Session{ID: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour)})
	store.Create(ctx, Session{ID: "dead", UserID: "u2", ExpiresAt: now.Add(-time.Second)})

	if _, err := store.Get(ctx, "live"); err != nil {
		t.Errorf("Get(live) = %v", err)
	}
	if _, err := store.Get(ctx, "dead"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(dead) = %v, want ErrSessionNotFound", err)
	}

	n, _ := store.Purge(ctx)
	if n != 1 {
		t.Errorf("Purge removed %d, want 1", n)
	}
	if _, err := store.Get(ctx, "live"); err != nil {
		t.Errorf("Purge removed a live session: %v", err)
	}
}

// requestWithCookies builds a request carrying the cookies set on rec.
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(NewMemorySessions(), testSessionConfig())
	ctx := context.Background()

	rec := httptest.NewRecorder()
	started, err := m.Start(ctx, rec, "user-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "crabby-crew-session" || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}
	if cookies[0].Value == started.ID {
		t.Error("cookie carries the raw session id")
	}

	s, err := m.Resolve(ctx, requestWithCookies(rec))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.UserID != "user-1" || s.ID != started.ID {
		t.Errorf("Resolve = %+v, want user-1 / %s", s, started.ID)
	}

	out := httptest.NewRecorder()
	userID, err := m.End(ctx, out, requestWithCookies(rec))
	if err != nil || userID != "user-1" {
		t.Fatalf("End = %q, %v", userID, err)
	}
	if cleared := out.Result().Cookies(); len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("End did not clear the cookie: %+v", cleared)
	}

	// The old cookie is revoked server-side.
	if _, err := m.Resolve(ctx, requestWithCookies(rec)); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Resolve after End = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerRejectsForeignCookie(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemorySessions()
	m := NewManager(sessions, testSessionConfig())

	cfg := testSessionConfig()
	cfg.Secret = "other-secret"
	forger := NewManager(sessions, cfg)

	rec := httptest.NewRecorder()
	if _, err := forger.Start(ctx, rec, "user-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Resolve(ctx, requestWithCookies(rec)); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Resolve(forged) = %v, want ErrSessionNotFound", err)
	}

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := m.Resolve(ctx, bare); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Resolve(no cookie) = %v, want ErrSessionNotFound", err)
	}
}

func TestEndWithoutSession(t *testing.T) {
	m := NewManager(NewMemorySessions(), testSessionConfig())
	userID, err := m.End(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	if err != nil || userID != "" {
		t.Errorf("End without session = %q, %v; want empty, nil", userID, err)
	}
}
