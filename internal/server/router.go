package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/crabby-crew/backend/internal/auth"
	"github.com/crabby-crew/backend/internal/gamification"
	"github.com/crabby-crew/backend/internal/httpx"
	"github.com/crabby-crew/backend/internal/logger"
	"github.com/crabby-crew/backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler         *auth.Handler
	GamificationHandler *gamification.Handler
	Sessions            *auth.Manager
	AllowedOrigins      []string
	Log                 *logger.Logger
}

type healthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func health(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Message:   "Crabby Crew API is running",
		Timestamp: time.Now().UTC(),
	})
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recover(cfg.Log))
	r.Use(middleware.Logger(cfg.Log))
	r.Use(middleware.Session(cfg.Sessions, cfg.Log))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", health).Methods("GET")

	// Auth
	api.HandleFunc("/auth/login", cfg.AuthHandler.Login).Methods("POST")
	api.HandleFunc("/auth/user", cfg.AuthHandler.GetCurrentUser).Methods("GET")
	api.HandleFunc("/auth/logout", cfg.AuthHandler.Logout).Methods("POST")
	api.HandleFunc("/profile", cfg.AuthHandler.UpdateProfile).Methods("PUT")

	// Progress and actions
	g := cfg.GamificationHandler
	api.HandleFunc("/progress/{userId}", g.GetProgress).Methods("GET")
	api.HandleFunc("/progress/{userId}", g.UpdateProgress).Methods("POST")
	api.HandleFunc("/quiz-attempts", g.SubmitQuizAttempt).Methods("POST")
	api.HandleFunc("/quiz-attempts/{userId}", g.ListQuizAttempts).Methods("GET")
	api.HandleFunc("/learn-species/{userId}", g.LearnSpecies).Methods("POST")
	api.HandleFunc("/crab-flipped", g.FlipCrab).Methods("POST")
	api.HandleFunc("/video-complete", g.CompleteVideo).Methods("POST")

	// Leaderboards and social
	api.HandleFunc("/leaderboards", g.Leaderboard).Methods("GET")
	api.HandleFunc("/user/{userId}/rank/{category}", g.UserRank).Methods("GET")
	api.HandleFunc("/public-achievements", g.PublicAchievements).Methods("GET")
	api.HandleFunc("/top-users-week", g.TopUsersThisWeek).Methods("GET")
	api.HandleFunc("/weekly-challenges", g.WeeklyChallenges).Methods("GET")
	api.HandleFunc("/weekly-challenges/{challengeId}/participant/{userId}", g.ChallengeParticipant).Methods("GET")

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
