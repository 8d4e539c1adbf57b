package gamification

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/crabby-crew/backend/internal/apperr"
	"github.com/crabby-crew/backend/internal/auth"
	"github.com/crabby-crew/backend/internal/httpx"
	"github.com/crabby-crew/backend/internal/logger"
	"github.com/crabby-crew/backend/internal/models"
)

type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func getUserID(r *http.Request) (string, bool) {
	return auth.UserIDFromContext(r.Context())
}

// requireUser returns the session user or writes 401.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := getUserID(r)
	if !ok {
		h.writeError(w, r, apperr.Unauthenticated("Not authenticated"))
		return "", false
	}
	return userID, true
}

// requireSelf writes 401 or 403 unless the session user is target.
func (h *Handler) requireSelf(w http.ResponseWriter, r *http.Request, target, forbidden string) bool {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return false
	}
	if userID != target {
		h.writeError(w, r, apperr.Forbidden(forbidden))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, h.log, r, err)
}

// ── Progress ────────────────────────────────────────────

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["userId"]
	if !h.requireSelf(w, r, target, "Not authorized to access this progress") {
		return
	}

	p, err := h.service.GetProgress(r.Context(), target)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["userId"]
	if !h.requireSelf(w, r, target, "Not authorized to update this progress") {
		return
	}

	var req models.ProgressUpdate
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.service.UpdateProgress(r.Context(), target, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// ── Actions ─────────────────────────────────────────────

func (h *Handler) LearnSpecies(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["userId"]
	if !h.requireSelf(w, r, target, "Not authorized to update this progress") {
		return
	}

	var req models.LearnSpeciesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.LearnSpecies(r.Context(), target, req.SpeciesID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res.Progress)
}

func (h *Handler) FlipCrab(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req models.FlipCrabRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.FlipCrab(r.Context(), userID, req.CrabID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	msg := "Crab discovery recorded"
	if res.XPEarned == 0 {
		msg = "Crab already discovered"
	}
	httpx.WriteJSON(w, http.StatusOK, models.ActionResponse{Message: msg, Progress: res.Progress, XPEarned: res.XPEarned})
}

func (h *Handler) CompleteVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req models.VideoCompleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.CompleteVideo(r.Context(), userID, req.VideoID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.ActionResponse{
		Message:  "Video marked as complete",
		Progress: res.Progress,
		XPEarned: res.XPEarned,
	})
}

// ── Quiz Attempts ───────────────────────────────────────

func (h *Handler) SubmitQuizAttempt(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req models.QuizAttemptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.UserID != userID {
		h.writeError(w, r, apperr.Forbidden("Not authorized to submit quiz for this user"))
		return
	}

	resp, err := h.service.SubmitQuizAttempt(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListQuizAttempts(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["userId"]
	if !h.requireSelf(w, r, target, "Not authorized to view these quiz attempts") {
		return
	}

	attempts, err := h.service.ListQuizAttempts(r.Context(), target)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, attempts)
}

// ── Leaderboard ─────────────────────────────────────────

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	category := query.Get("category")
	if category == "" {
		category = models.CategoryTotalXP
	}
	limit := clampLimit(httpx.IntQuery(query, "limit", DefaultLeaderboardLimit))

	resp, err := h.service.Leaderboard(r.Context(), category, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) UserRank(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rank, err := h.service.UserRank(r.Context(), vars["userId"], vars["category"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.RankResponse{Rank: rank})
}

func (h *Handler) TopUsersThisWeek(w http.ResponseWriter, r *http.Request) {
	limit := clampLimit(httpx.IntQuery(r.URL.Query(), "limit", DefaultWeeklyUsersLimit))

	resp, err := h.service.TopUsersThisWeek(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// ── Social ──────────────────────────────────────────────

func (h *Handler) PublicAchievements(w http.ResponseWriter, r *http.Request) {
	limit := clampLimit(httpx.IntQuery(r.URL.Query(), "limit", DefaultAchievementLimit))

	resp, err := h.service.PublicAchievements(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// ── Weekly Challenges ───────────────────────────────────

func (h *Handler) WeeklyChallenges(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ActiveChallenges(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ChallengeParticipant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	p, err := h.service.ChallengeParticipant(r.Context(), vars["userId"], vars["challengeId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// ── Helpers ─────────────────────────────────────────────

// clampLimit keeps list queries bounded; 0 falls back to the maximum.
func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxLeaderboardQueryLimit {
		return MaxLeaderboardQueryLimit
	}
	return limit
}
