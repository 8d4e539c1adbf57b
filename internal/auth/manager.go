package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/crabby-crew/backend/internal/config"
)

// Manager owns the session cookie: it issues, resolves and clears it.
type Manager struct {
	store  SessionStore
	codec  *TokenCodec
	cookie string
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(store SessionStore, cfg config.Session) *Manager {
	return &Manager{
		store:  store,
		codec:  NewTokenCodec(cfg.Secret),
		cookie: cfg.CookieName,
		maxAge: cfg.MaxAge,
		secure: cfg.Secure,
		now:    time.Now,
	}
}

// Start creates a session for userID and sets the cookie on w.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, userID string) (*Session, error) {
	s := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: m.now().Add(m.maxAge),
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := m.codec.Encode(s)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(m.maxAge / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return &s, nil
}

// Resolve returns the live session named by the request cookie. A missing,
// forged, expired or revoked cookie yields ErrSessionNotFound.
func (m *Manager) Resolve(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookie)
	if err != nil || c.Value == "" {
		return nil, ErrSessionNotFound
	}

	claimed, err := m.codec.Decode(c.Value)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	s, err := m.store.Get(ctx, claimed.ID)
	if err != nil {
		return nil, err
	}
	if s.UserID != claimed.UserID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// End revokes the request's session, if any, and clears the cookie. It
// returns the user that was logged in, or "" when there was no session.
func (m *Manager) End(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	defer http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	s, err := m.Resolve(ctx, r)
	if errors.Is(err, ErrSessionNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return "", fmt.Errorf("delete session: %w", err)
	}
	return s.UserID, nil
}

func (m *Manager) Purge(ctx context.Context) (int, error) {
	return m.store.Purge(ctx)
}
