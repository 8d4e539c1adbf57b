package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crabby-crew/backend/internal/apperr"
	"github.com/crabby-crew/backend/internal/logger"
	"github.com/crabby-crew/backend/internal/models"
	"github.com/crabby-crew/backend/internal/storage"
)

type Service struct {
	store storage.Store
	log   *logger.Logger
	locks *userLocks
	now   func() time.Time
	loc   *time.Location
}

type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone that decides calendar days and week starts.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(store storage.Store, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   log,
		locks: newUserLocks(),
		now:   time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActionResult is the outcome of one user action.
type ActionResult struct {
	Progress *models.Progress
	XPEarned int
	Unlocked []string
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// ── Progress ────────────────────────────────────────────

func (s *Service) GetProgress(ctx context.Context, userID string) (*models.Progress, error) {
	p, err := s.store.GetOrCreateProgress(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to get progress", err)
	}
	return p, nil
}

// UpdateProgress merges a partial update. Level is recomputed, longestStreak
// is kept at or above currentStreak and every badge the result qualifies for
// is unlocked.
func (s *Service) UpdateProgress(ctx context.Context, userID string, upd models.ProgressUpdate) (*models.Progress, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	p, err := s.store.GetOrCreateProgress(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to get progress", err)
	}

	upd.Apply(p)
	p.Level = Level(p.TotalXP)
	if p.LongestStreak < p.CurrentStreak {
		p.LongestStreak = p.CurrentStreak
	}
	unlocked := UnlockBadges(p, AllBadges)

	if err := s.store.SaveProgress(ctx, p); err != nil {
		return nil, apperr.Internal("Failed to update progress", err)
	}
	s.updateLeaderboard(ctx, userID, models.CategoryTotalXP, p.TotalXP)
	s.recordAchievements(ctx, userID, unlocked)
	return p, nil
}

// ── Learn Species ───────────────────────────────────────

// LearnSpecies is a silent no-op when the species is already learned.
func (s *Service) LearnSpecies(ctx context.Context, userID, speciesID string) (*ActionResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	p, err := s.store.GetOrCreateProgress(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to update learned species", err)
	}
	if models.Contains(p.LearnedSpecies, speciesID) {
		return &ActionResult{Progress: p}, nil
	}

	p.LearnedSpecies = append(p.LearnedSpecies, speciesID)
	AddXP(p, SpeciesXP)
	unlocked := UnlockBadges(p, SpeciesBadges)

	if err := s.store.SaveProgress(ctx, p); err != nil {
		return nil, apperr.Internal("Failed to update learned species", err)
	}

	s.updateLeaderboard(ctx, userID, models.CategoryTotalXP, p.TotalXP)
	s.updateLeaderboard(ctx, userID, models.CategorySpeciesCollector, len(p.LearnedSpecies))
	s.recordAchievements(ctx, userID, unlocked)
	s.advanceChallenges(ctx, userID, models.MetricSpeciesLearned, 1)
	s.advanceChallenges(ctx, userID, models.MetricXPEarned, SpeciesXP)

	return &ActionResult{Progress: p, XPEarned: SpeciesXP, Unlocked: unlocked}, nil
}

// ── Flip Crab ───────────────────────────────────────────

// FlipCrab awards XP the first time a card is flipped. Badges are not checked
// on this path.
func (s *Service) FlipCrab(ctx context.Context, userID, crabID string) (*ActionResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	p, err := s.store.GetOrCreateProgress(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to record crab flip", err)
	}
	if models.Contains(p.FlippedCrabs, crabID) {
		return &ActionResult{Progress: p}, nil
	}

	p.FlippedCrabs = append(p.FlippedCrabs, crabID)
	AddXP(p, FlipXP)
	ApplyStreak(p, s.today())

	if err := s.store.SaveProgress(ctx, p); err != nil {
		return nil, apperr.Internal("Failed to record crab flip", err)
	}

	s.updateLeaderboard(ctx, userID, models.CategoryTotalXP, p.TotalXP)
	s.advanceChallenges(ctx, userID, models.MetricXPEarned, FlipXP)

	return &ActionResult{Progress: p, XPEarned: FlipXP}, nil
}

// ── Videos ──────────────────────────────────────────────

var ErrVideoCompleted = apperr.Conflict("Video already completed")

// CompleteVideo fails with a conflict when the video was already watched.
func (s *Service) CompleteVideo(ctx context.Context, userID, videoID string) (*ActionResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	p, err := s.store.GetOrCreateProgress(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to complete video", err)
	}
	if models.Contains(p.WatchedVideos, videoID) {
		return nil, ErrVideoCompleted
	}

	p.WatchedVideos = append(p.WatchedVideos, videoID)
	AddXP(p, VideoXP)
	ApplyStreak(p, s.today())

	if err := s.store.SaveProgress(ctx, p); err != nil {
		return nil, apperr.Internal("Failed to complete video", err)
	}

	s.updateLeaderboard(ctx, userID, models.CategoryTotalXP, p.TotalXP)
	s.advanceChallenges(ctx, userID, models.MetricXPEarned, VideoXP)

	return &ActionResult{Progress: p, XPEarned: VideoXP}, nil
}

// ── Quiz Attempts ───────────────────────────────────────

// SubmitQuizAttempt always records a new attempt; resubmitting adds XP again.
func (s *Service) SubmitQuizAttempt(ctx context.Context, req models.QuizAttemptRequest) (*models.QuizAttemptResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(req.UserID)
	defer unlock()

	today := s.today()
	completedAt := today
	if req.CompletedAt != nil && !req.CompletedAt.IsZero() {
		completedAt = *req.CompletedAt
	}

	p, err := s.store.GetOrCreateProgress(ctx, req.UserID)
	if err != nil {
		return nil, apperr.Internal("Failed to get progress", err)
	}

	AddXP(p, req.XPEarned)
	ApplyStreak(p, today)
	p.CompletedQuizzes = append(p.CompletedQuizzes, req.QuizID)
	p.DifficultyLevel = AdaptDifficulty(req.Score, req.TotalQuestions, p.DifficultyLevel)
	unlocked := UnlockBadges(p, QuizBadges)

	attempt := &models.QuizAttempt{
		UserID:         req.UserID,
		QuizID:         req.QuizID,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		XPEarned:       req.XPEarned,
		CompletedAt:    completedAt,
	}
	if err := s.store.SaveQuizResult(ctx, attempt, p); err != nil {
		return nil, apperr.Internal("Failed to save quiz attempt", err)
	}

	s.updateLeaderboard(ctx, req.UserID, models.CategoryTotalXP, p.TotalXP)
	s.updateLeaderboard(ctx, req.UserID, models.CategoryQuizMaster, len(p.CompletedQuizzes))
	s.updateLeaderboard(ctx, req.UserID, models.CategoryStreakChampion, p.LongestStreak)
	s.recordAchievements(ctx, req.UserID, unlocked)
	if Accuracy(req.Score, req.TotalQuestions) >= 0.8 {
		s.advanceChallenges(ctx, req.UserID, models.MetricQuizzesCompleted, 1)
	}
	if req.XPEarned > 0 {
		s.advanceChallenges(ctx, req.UserID, models.MetricXPEarned, req.XPEarned)
	}

	if unlocked == nil {
		unlocked = []string{}
	}
	return &models.QuizAttemptResponse{
		QuizAttempt:    *attempt,
		Progress:       p,
		BadgesUnlocked: unlocked,
	}, nil
}

func (s *Service) ListQuizAttempts(ctx context.Context, userID string) ([]models.QuizAttempt, error) {
	attempts, err := s.store.ListQuizAttempts(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to get quiz attempts", err)
	}
	return attempts, nil
}

// ── Side effects ────────────────────────────────────────

// Progress is already saved when these run, so failures are logged and the
// action still succeeds.

func (s *Service) updateLeaderboard(ctx context.Context, userID, category string, score int) {
	if _, err := s.store.UpsertLeaderboard(ctx, userID, category, score); err != nil {
		s.log.Error("leaderboard update failed",
			"user_id", userID, "category", category, "error", err)
	}
}

func (s *Service) recordAchievements(ctx context.Context, userID string, badges []string) {
	for _, badgeID := range badges {
		s.log.Info("badge unlocked", "user_id", userID, "badge", badgeID)
		err := s.store.CreatePublicAchievement(ctx, &models.PublicAchievement{
			UserID:   userID,
			BadgeID:  badgeID,
			EarnedAt: s.now(),
			IsShared: true,
		})
		if err != nil {
			s.log.Error("public achievement insert failed",
				"user_id", userID, "badge", badgeID, "error", err)
		}
	}
}

// advanceChallenges credits amount to every active challenge tracking metric.
// Completing a challenge marks the participant; no XP is paid out.
func (s *Service) advanceChallenges(ctx context.Context, userID, metric string, amount int) {
	now := s.now()
	challenges, err := s.store.ActiveWeeklyChallenges(ctx, now)
	if err != nil {
		s.log.Error("load active challenges failed", "error", err)
		return
	}

	for _, c := range challenges {
		if c.TargetMetric != metric {
			continue
		}
		if err := s.advanceChallenge(ctx, userID, c, amount, now); err != nil {
			s.log.Error("challenge progress failed",
				"user_id", userID, "challenge_id", c.ID, "error", err)
		}
	}
}

func (s *Service) advanceChallenge(ctx context.Context, userID string, c models.WeeklyChallenge, amount int, now time.Time) error {
	part, err := s.store.GetChallengeParticipant(ctx, userID, c.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		part = &models.ChallengeParticipant{UserID: userID, ChallengeID: c.ID}
	case err != nil:
		return fmt.Errorf("get participant: %w", err)
	}
	if part.Completed {
		return nil
	}

	part.Progress += amount
	if part.Progress >= c.TargetValue {
		part.Completed = true
		part.CompletedAt = &now
		s.log.Info("weekly challenge completed", "user_id", userID, "challenge", c.Title)
	}
	return s.store.SaveChallengeParticipant(ctx, part)
}
