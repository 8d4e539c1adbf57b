package gamification

import (
	"context"
	"errors"
	"sort"

	"github.com/crabby-crew/backend/internal/apperr"
	"github.com/crabby-crew/backend/internal/models"
	"github.com/crabby-crew/backend/internal/storage"
)

const (
	DefaultLeaderboardLimit  = 10
	DefaultAchievementLimit  = 20
	DefaultWeeklyUsersLimit  = 10
	MaxLeaderboardQueryLimit = 100
)

// assignRanks numbers entries 1..n in their current order.
func assignRanks(entries []models.LeaderboardEntry) {
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// Leaderboard returns the top limit entries of category with their users.
// Entries whose user no longer exists are dropped after ranking.
func (s *Service) Leaderboard(ctx context.Context, category string, limit int) ([]models.LeaderboardView, error) {
	if !models.ValidCategories[category] {
		return nil, apperr.Invalid("category", "Unknown leaderboard category")
	}

	entries, err := s.store.LeaderboardEntries(ctx, category, limit)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch leaderboards", err)
	}
	assignRanks(entries)

	users := make(map[string]*models.User, len(entries))
	views := make([]models.LeaderboardView, 0, len(entries))
	for _, e := range entries {
		u, ok := users[e.UserID]
		if !ok {
			u, err = s.store.GetUser(ctx, e.UserID)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, apperr.Internal("Failed to fetch leaderboards", err)
			}
			users[e.UserID] = u
		}
		views = append(views, models.LeaderboardView{LeaderboardEntry: e, User: u.Public()})
	}
	return views, nil
}

// UserRank returns the 1-based position of userID in category, or nil when
// the user has no entry.
func (s *Service) UserRank(ctx context.Context, userID, category string) (*int, error) {
	if !models.ValidCategories[category] {
		return nil, apperr.Invalid("category", "Unknown leaderboard category")
	}

	entries, err := s.store.LeaderboardEntries(ctx, category, 0)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch user rank", err)
	}
	for i, e := range entries {
		if e.UserID == userID {
			rank := i + 1
			return &rank, nil
		}
	}
	return nil, nil
}

// ── Achievements ────────────────────────────────────────

func (s *Service) PublicAchievements(ctx context.Context, limit int) ([]models.AchievementView, error) {
	achievements, err := s.store.ListSharedAchievements(ctx, limit)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch public achievements", err)
	}

	views := make([]models.AchievementView, 0, len(achievements))
	for _, a := range achievements {
		u, err := s.store.GetUser(ctx, a.UserID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperr.Internal("Failed to fetch public achievements", err)
		}
		views = append(views, models.AchievementView{PublicAchievement: a, User: *u})
	}
	return views, nil
}

// ── Weekly ──────────────────────────────────────────────

// TopUsersThisWeek ranks users by quiz XP earned since the most recent Sunday.
// Species, video and flip XP do not count.
func (s *Service) TopUsersThisWeek(ctx context.Context, limit int) ([]models.WeeklyUser, error) {
	since := models.WeekStart(s.today())
	totals, err := s.store.QuizXPSince(ctx, since)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch top users", err)
	}

	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].XP != totals[j].XP {
			return totals[i].XP > totals[j].XP
		}
		return totals[i].UserID < totals[j].UserID
	})

	out := make([]models.WeeklyUser, 0, len(totals))
	for _, t := range totals {
		if limit > 0 && len(out) == limit {
			break
		}
		u, err := s.store.GetUser(ctx, t.UserID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperr.Internal("Failed to fetch top users", err)
		}
		out = append(out, models.WeeklyUser{User: *u, WeeklyXP: t.XP})
	}
	return out, nil
}

func (s *Service) ActiveChallenges(ctx context.Context) ([]models.WeeklyChallenge, error) {
	challenges, err := s.store.ActiveWeeklyChallenges(ctx, s.now())
	if err != nil {
		return nil, apperr.Internal("Failed to fetch weekly challenges", err)
	}
	return challenges, nil
}

// ChallengeParticipant returns nil when the user has not started the challenge.
func (s *Service) ChallengeParticipant(ctx context.Context, userID, challengeID string) (*models.ChallengeParticipant, error) {
	p, err := s.store.GetChallengeParticipant(ctx, userID, challengeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("Failed to fetch challenge participant", err)
	}
	return p, nil
}

// RotateWeeklyChallenges seeds the current week's challenges when none are
// active. Called at start and by the Sunday cron job.
func (s *Service) RotateWeeklyChallenges(ctx context.Context) (int, error) {
	return storage.SeedWeeklyChallenges(ctx, s.store, s.today())
}

// SeedDemoData creates the demo users with the badges their progress earns.
func (s *Service) SeedDemoData(ctx context.Context) (int, error) {
	return storage.SeedDemoData(ctx, s.store, s.today(), func(p *models.Progress) []string {
		return UnlockBadges(p, AllBadges)
	})
}
