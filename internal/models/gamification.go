package models

import (
	"strings"
	"time"

	"github.com/crabby-crew/backend/internal/apperr"
)

// ── Quiz Attempts ─────────────────────────────────────────

// MaxQuizXP caps the XP a single quiz attempt may claim.
const MaxQuizXP = 1000

type QuizAttempt struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	QuizID         string    `json:"quizId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	XPEarned       int       `json:"xpEarned"`
	CompletedAt    time.Time `json:"completedAt"`
}

type QuizAttemptRequest struct {
	UserID         string     `json:"userId"`
	QuizID         string     `json:"quizId"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"totalQuestions"`
	XPEarned       int        `json:"xpEarned"`
	CompletedAt    *time.Time `json:"completedAt"`
}

func (r *QuizAttemptRequest) Validate() error {
	r.UserID = strings.TrimSpace(r.UserID)
	r.QuizID = strings.TrimSpace(r.QuizID)

	var v apperr.Validator
	v.Check(r.UserID != "", "userId", "userId is required")
	v.Check(r.QuizID != "", "quizId", "quizId is required")
	v.Check(r.TotalQuestions > 0, "totalQuestions", "totalQuestions must be positive")
	v.Check(r.Score >= 0, "score", "score must not be negative")
	v.Check(r.Score <= r.TotalQuestions, "score", "score must not exceed totalQuestions")
	v.Check(r.XPEarned >= 0, "xpEarned", "xpEarned must not be negative")
	v.Check(r.XPEarned <= MaxQuizXP, "xpEarned", "xpEarned must be at most 1000")
	return v.Err()
}

// QuizAttemptResponse keeps the attempt fields at the top level and adds the
// resulting progress.
type QuizAttemptResponse struct {
	QuizAttempt
	Progress       *Progress `json:"progress"`
	BadgesUnlocked []string  `json:"badgesUnlocked"`
}

// ── Leaderboards ──────────────────────────────────────────

const (
	CategoryTotalXP          = "total_xp"
	CategorySpeciesCollector = "species_collector"
	CategoryQuizMaster       = "quiz_master"
	CategoryStreakChampion   = "streak_champion"
)

var ValidCategories = map[string]bool{
	CategoryTotalXP:          true,
	CategorySpeciesCollector: true,
	CategoryQuizMaster:       true,
	CategoryStreakChampion:   true,
}

// LeaderboardEntry is the best score per (user, category). Rank is computed at
// read time and never stored.
type LeaderboardEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Category    string    `json:"category"`
	Score       int       `json:"score"`
	Rank        int       `json:"rank"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type LeaderboardView struct {
	LeaderboardEntry
	User PublicUser `json:"user"`
}

type RankResponse struct {
	Rank *int `json:"rank"`
}

// WeeklyUser is a user with quiz XP earned since the start of the week.
type WeeklyUser struct {
	User
	WeeklyXP int `json:"weeklyXp"`
}

// ── Achievements ──────────────────────────────────────────

type PublicAchievement struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	BadgeID  string    `json:"badgeId"`
	EarnedAt time.Time `json:"earnedAt"`
	IsShared bool      `json:"isShared"`
}

type AchievementView struct {
	PublicAchievement
	User User `json:"user"`
}

// ── Weekly Challenges ─────────────────────────────────────

const (
	MetricSpeciesLearned   = "species_learned"
	MetricQuizzesCompleted = "quizzes_completed"
	MetricXPEarned         = "xp_earned"
)

type WeeklyChallenge struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	TargetMetric string    `json:"targetMetric"`
	TargetValue  int       `json:"targetValue"`
	XPReward     int       `json:"xpReward"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	IsActive     bool      `json:"isActive"`
}

// ActiveAt reports whether the challenge is running at t.
func (c WeeklyChallenge) ActiveAt(t time.Time) bool {
	return c.IsActive && !c.StartDate.After(t) && !c.EndDate.Before(t)
}

type ChallengeParticipant struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	ChallengeID string     `json:"challengeId"`
	Progress    int        `json:"progress"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

// ── Calendar ──────────────────────────────────────────────

// DateLayout is the calendar-date format stored in lastActivityDate.
const DateLayout = "2006-01-02"

// CalendarDate formats t as a calendar date in t's location.
func CalendarDate(t time.Time) string {
	return t.Format(DateLayout)
}

// WeekStart returns midnight of the most recent Sunday in t's location.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -int(t.Weekday()))
}
