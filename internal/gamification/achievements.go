package gamification

import "github.com/crabby-crew/backend/internal/models"

const (
	BadgeFirstSteps       = "first-steps"
	BadgeSpeciesCollector = "species-collector"
	BadgeCrabExpert       = "crab-expert"
	BadgeStreakMaster     = "streak-master"
	BadgeLevel5           = "level-5"
)

// BadgeDef defines a single badge.
type BadgeDef struct {
	Name        string
	Description string
	qualifies   func(p *models.Progress) bool
}

// Badges maps badge ids to their definitions.
var Badges = map[string]BadgeDef{
	BadgeFirstSteps: {
		Name:        "First Steps",
		Description: "Learn 5 crab species",
		qualifies:   func(p *models.Progress) bool { return len(p.LearnedSpecies) >= 5 },
	},
	BadgeSpeciesCollector: {
		Name:        "Species Collector",
		Description: "Learn 10 crab species",
		qualifies:   func(p *models.Progress) bool { return len(p.LearnedSpecies) >= 10 },
	},
	BadgeCrabExpert: {
		Name:        "Crab Expert",
		Description: "Earn 1,000 total XP",
		qualifies:   func(p *models.Progress) bool { return p.TotalXP >= 1000 },
	},
	BadgeStreakMaster: {
		Name:        "Streak Master",
		Description: "7-day streak",
		qualifies:   func(p *models.Progress) bool { return p.CurrentStreak >= 7 },
	},
	BadgeLevel5: {
		Name:        "Level 5",
		Description: "Reach level 5",
		qualifies:   func(p *models.Progress) bool { return p.Level >= 5 },
	},
}

// Badge groups checked by each action.
var (
	SpeciesBadges = []string{BadgeFirstSteps, BadgeSpeciesCollector}
	QuizBadges    = []string{BadgeCrabExpert, BadgeStreakMaster, BadgeLevel5}
	AllBadges     = []string{BadgeFirstSteps, BadgeSpeciesCollector, BadgeCrabExpert, BadgeStreakMaster, BadgeLevel5}
)

// CheckBadges returns the badges among ids that p currently qualifies for,
// whether or not they are already held.
func CheckBadges(p *models.Progress, ids []string) []string {
	var earned []string
	for _, id := range ids {
		if def, ok := Badges[id]; ok && def.qualifies(p) {
			earned = append(earned, id)
		}
	}
	return earned
}

// UnlockBadges appends the badges p newly qualifies for and returns only those.
func UnlockBadges(p *models.Progress, ids []string) []string {
	var unlocked []string
	for _, id := range CheckBadges(p, ids) {
		if models.Contains(p.Badges, id) {
			continue
		}
		p.Badges = append(p.Badges, id)
		unlocked = append(unlocked, id)
	}
	return unlocked
}
