package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crabby-crew/backend/internal/models"
)

// ── Weekly Challenges ───────────────────────────────────

var weeklyChallengeTemplates = []models.WeeklyChallenge{
	{
		Title:        "Crab Master Challenge",
		Description:  "Learn 5 new crab species this week!",
		TargetMetric: models.MetricSpeciesLearned,
		TargetValue:  5,
		XPReward:     100,
	},
	{
		Title:        "Quiz Champion",
		Description:  "Complete 3 quizzes with 80% or higher score!",
		TargetMetric: models.MetricQuizzesCompleted,
		TargetValue:  3,
		XPReward:     150,
	},
}

// SeedWeeklyChallenges creates this week's challenges unless some are already
// active at now. It reports how many were created.
func SeedWeeklyChallenges(ctx context.Context, store ChallengeStore, now time.Time) (int, error) {
	active, err := store.ActiveWeeklyChallenges(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(active) > 0 {
		return 0, nil
	}

	start := models.WeekStart(now)
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	for _, tmpl := range weeklyChallengeTemplates {
		c := tmpl
		c.StartDate = start
		c.EndDate = end
		c.IsActive = true
		if err := store.CreateWeeklyChallenge(ctx, &c); err != nil {
			return 0, fmt.Errorf("seed challenge %q: %w", c.Title, err)
		}
	}
	return len(weeklyChallengeTemplates), nil
}

// ── Demo Data ───────────────────────────────────────────

type demoUser struct {
	username      string
	displayName   string
	avatar        string
	totalXP       int
	species       int
	currentStreak int
	longestStreak int
	online        bool
}

var demoUsers = []demoUser{
	{"CrabWhisperer", "Crab Whisperer", "🦀", 850, 8, 6, 12, true},
	{"OceanExplorer", "Ocean Explorer", "🌊", 720, 6, 3, 9, false},
	{"MarineBiologist", "Marine Biologist", "🔬", 680, 7, 7, 14, true},
	{"ShellSeeker", "Shell Seeker", "🐚", 540, 5, 2, 6, false},
	{"TidePooler", "Tide Pooler", "🏖️", 420, 4, 1, 5, false},
}

// SeedDemoData populates a handful of users so leaderboards and the
// achievement feed are not empty on a fresh install. Users that already exist
// are left alone, so it is safe to call on every start. unlock adds the
// badges a seeded progress record qualifies for and returns them; each one
// gets a shared achievement.
func SeedDemoData(ctx context.Context, store Store, now time.Time, unlock func(*models.Progress) []string) (int, error) {
	today := models.CalendarDate(now)
	created := 0

	for i, d := range demoUsers {
		_, err := store.GetUserByUsername(ctx, d.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, err
		}

		user := &models.User{
			Username:    d.username,
			DisplayName: d.displayName,
			AvatarEmoji: d.avatar,
			IsOnline:    d.online,
			LastSeen:    now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, ErrDuplicateUser) {
				continue
			}
			return created, fmt.Errorf("seed user %s: %w", d.username, err)
		}

		p, err := store.GetOrCreateProgress(ctx, user.ID)
		if err != nil {
			return created, err
		}
		p.TotalXP = d.totalXP
		p.Level = d.totalXP/200 + 1
		p.CurrentStreak = d.currentStreak
		p.LongestStreak = d.longestStreak
		p.CompletedQuizzes = []string{"hermit-crab", "blue-crab"}
		for s := 0; s < d.species; s++ {
			p.LearnedSpecies = append(p.LearnedSpecies, fmt.Sprintf("species-%d", s))
		}
		var badges []string
		if unlock != nil {
			badges = unlock(p)
		}
		p.LastActivityDate = &today
		if err := store.SaveProgress(ctx, p); err != nil {
			return created, err
		}

		if _, err := store.UpsertLeaderboard(ctx, user.ID, models.CategoryTotalXP, d.totalXP); err != nil {
			return created, err
		}
		if _, err := store.UpsertLeaderboard(ctx, user.ID, models.CategorySpeciesCollector, d.species); err != nil {
			return created, err
		}
		if _, err := store.UpsertLeaderboard(ctx, user.ID, models.CategoryStreakChampion, d.longestStreak); err != nil {
			return created, err
		}

		for _, badgeID := range badges {
			err := store.CreatePublicAchievement(ctx, &models.PublicAchievement{
				UserID:   user.ID,
				BadgeID:  badgeID,
				EarnedAt: now.Add(-time.Duration(i+1) * 13 * time.Hour),
				IsShared: true,
			})
			if err != nil {
				return created, err
			}
		}
		created++
	}
	return created, nil
}
