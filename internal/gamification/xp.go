package gamification

import (
	"time"

	"github.com/crabby-crew/backend/internal/models"
)

const (
	XPPerLevel = 200

	SpeciesXP = 25
	FlipXP    = 25
	VideoXP   = 50
)

// Level derives the level from total XP. It is never stored independently.
func Level(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP/XPPerLevel + 1
}

// NextLevelXP is the total XP at which the level after level begins.
func NextLevelXP(level int) int {
	return level * XPPerLevel
}

// NextStreak applies the daily streak rule. changed is false when the user
// was already credited today.
func NextStreak(lastActivity *string, today time.Time, current int) (streak int, changed bool) {
	if lastActivity == nil || *lastActivity == "" {
		return 1, true
	}

	last := *lastActivity
	// Older records may hold a full timestamp; only the date part matters.
	if len(last) > len(models.DateLayout) {
		last = last[:len(models.DateLayout)]
	}

	todayDate := models.CalendarDate(today)
	if last == todayDate {
		return current, false
	}
	if last == models.CalendarDate(today.AddDate(0, 0, -1)) {
		return current + 1, true
	}
	return 1, true
}

// ApplyStreak credits today's activity to p.
func ApplyStreak(p *models.Progress, today time.Time) {
	streak, changed := NextStreak(p.LastActivityDate, today, p.CurrentStreak)
	if !changed {
		return
	}
	p.CurrentStreak = streak
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	date := models.CalendarDate(today)
	p.LastActivityDate = &date
}

// AddXP awards xp and recomputes the level. The total saturates at
// models.MaxTotalXP instead of wrapping.
func AddXP(p *models.Progress, xp int) {
	if xp > models.MaxTotalXP-p.TotalXP {
		p.TotalXP = models.MaxTotalXP
	} else {
		p.TotalXP += xp
	}
	p.Level = Level(p.TotalXP)
}

// AdaptDifficulty nudges the quiz difficulty after an attempt. Fewer than five
// answers is too small a sample to move it.
func AdaptDifficulty(correct, total, current int) int {
	if total < 5 {
		return current
	}
	accuracy := float64(correct) / float64(total)

	switch {
	case accuracy >= 0.8 && current < models.MaxDifficulty:
		return current + 1
	case accuracy < 0.5 && current > models.MinDifficulty:
		return current - 1
	}
	return current
}

// Accuracy returns score/total, or 0 for an empty quiz.
func Accuracy(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total)
}
