package storage

import (
	"context"
	"errors"
	"time"

	"github.com/crabby-crew/backend/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateUser = errors.New("username already taken")
)

type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// CreateUser fails with ErrDuplicateUser when the username exists.
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
}

type ProgressStore interface {
	// GetOrCreateProgress atomically seeds a zero-valued record on first access.
	GetOrCreateProgress(ctx context.Context, userID string) (*models.Progress, error)
	SaveProgress(ctx context.Context, p *models.Progress) error
}

type QuizStore interface {
	CreateQuizAttempt(ctx context.Context, a *models.QuizAttempt) error
	// SaveQuizResult records a together with the progress it produced. Either
	// both are written or neither is; an unknown progress record is ErrNotFound.
	SaveQuizResult(ctx context.Context, a *models.QuizAttempt, p *models.Progress) error
	// ListQuizAttempts returns a user's attempts, newest first.
	ListQuizAttempts(ctx context.Context, userID string) ([]models.QuizAttempt, error)
	// QuizXPSince sums xpEarned per user over attempts completed at or after since.
	QuizXPSince(ctx context.Context, since time.Time) ([]UserXP, error)
}

type UserXP struct {
	UserID string
	XP     int
}

type LeaderboardStore interface {
	// UpsertLeaderboard stores score only when it beats the existing entry.
	UpsertLeaderboard(ctx context.Context, userID, category string, score int) (*models.LeaderboardEntry, error)
	// LeaderboardEntries returns a category sorted by score descending, ties in
	// insertion order. limit <= 0 returns every entry. Rank is left zero.
	LeaderboardEntries(ctx context.Context, category string, limit int) ([]models.LeaderboardEntry, error)
}

type AchievementStore interface {
	CreatePublicAchievement(ctx context.Context, a *models.PublicAchievement) error
	// ListSharedAchievements returns shared achievements, newest first.
	ListSharedAchievements(ctx context.Context, limit int) ([]models.PublicAchievement, error)
}

type ChallengeStore interface {
	CreateWeeklyChallenge(ctx context.Context, c *models.WeeklyChallenge) error
	ActiveWeeklyChallenges(ctx context.Context, at time.Time) ([]models.WeeklyChallenge, error)
	GetChallengeParticipant(ctx context.Context, userID, challengeID string) (*models.ChallengeParticipant, error)
	SaveChallengeParticipant(ctx context.Context, p *models.ChallengeParticipant) error
}

// Store is everything the service layer persists.
type Store interface {
	UserStore
	ProgressStore
	QuizStore
	LeaderboardStore
	AchievementStore
	ChallengeStore
	Close() error
}
