package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/crabby-crew/backend/internal/apperr"
	"github.com/crabby-crew/backend/internal/httpx"
	"github.com/crabby-crew/backend/internal/logger"
	"github.com/crabby-crew/backend/internal/models"
	"github.com/crabby-crew/backend/internal/storage"
)

// Store is what the auth handlers persist.
type Store interface {
	storage.UserStore
	GetOrCreateProgress(ctx context.Context, userID string) (*models.Progress, error)
}

type Handler struct {
	store    Store
	sessions *Manager
	log      *logger.Logger
	now      func() time.Time
}

func NewHandler(store Store, sessions *Manager, log *logger.Logger) *Handler {
	return &Handler{store: store, sessions: sessions, log: log, now: time.Now}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, h.log, r, err)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	user, err := h.findOrCreateUser(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.store.GetOrCreateProgress(ctx, user.ID); err != nil {
		h.writeError(w, r, apperr.Internal("Login failed", err))
		return
	}

	if _, err := h.sessions.Start(ctx, w, user.ID); err != nil {
		h.writeError(w, r, apperr.Internal("Login failed", err))
		return
	}

	now := h.now()
	user.IsOnline = true
	user.LastSeen = now
	user.UpdatedAt = now
	if err := h.store.UpdateUser(ctx, user); err != nil {
		h.log.Warn("mark user online failed", "user_id", user.ID, "error", err)
	}

	h.log.Info("user logged in", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, models.LoginResponse{User: *user, Message: "Login successful"})
}

// findOrCreateUser looks the username up and creates it when allowed. A lost
// creation race falls back to the row the other request inserted.
func (h *Handler) findOrCreateUser(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	user, err := h.store.GetUserByUsername(ctx, req.Username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Internal("Login failed", err)
	}
	if !req.CreateNew {
		return nil, apperr.NotFound("User not found. Try creating a new account.")
	}

	now := h.now()
	user = &models.User{
		Username:    req.Username,
		DisplayName: req.Username,
		AvatarEmoji: models.DefaultAvatarEmoji,
		LastSeen:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = h.store.CreateUser(ctx, user)
	if errors.Is(err, storage.ErrDuplicateUser) {
		user, err = h.store.GetUserByUsername(ctx, req.Username)
	}
	if err != nil {
		return nil, apperr.Internal("Login failed", err)
	}
	h.log.Info("user created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperr.Unauthenticated("Not authenticated"))
		return
	}

	user, err := h.store.GetUser(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, r, apperr.NotFound("User not found"))
		return
	}
	if err != nil {
		h.writeError(w, r, apperr.Internal("Failed to fetch user", err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := h.sessions.End(ctx, w, r)
	if err != nil {
		h.writeError(w, r, apperr.Internal("Logout failed", err))
		return
	}

	if userID != "" {
		h.markOffline(ctx, userID)
	}
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "Logout successful"})
}

func (h *Handler) markOffline(ctx context.Context, userID string) {
	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		h.log.Warn("mark user offline failed", "user_id", userID, "error", err)
		return
	}
	now := h.now()
	user.IsOnline = false
	user.LastSeen = now
	user.UpdatedAt = now
	if err := h.store.UpdateUser(ctx, user); err != nil {
		h.log.Warn("mark user offline failed", "user_id", userID, "error", err)
	}
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperr.Unauthenticated("Not authenticated"))
		return
	}

	var req models.UpdateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.store.GetUser(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, r, apperr.NotFound("User not found"))
		return
	}
	if err != nil {
		h.writeError(w, r, apperr.Internal("Failed to update profile", err))
		return
	}

	req.Apply(user)
	user.UpdatedAt = h.now()
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		h.writeError(w, r, apperr.Internal("Failed to update profile", err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}
