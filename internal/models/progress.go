package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crabby-crew/backend/internal/apperr"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 3

	// MaxTotalXP is the ceiling for totalXp; the postgres column is a 32-bit INT.
	MaxTotalXP = 1<<31 - 1
)

// Progress is the per-user gamification aggregate.
type Progress struct {
	ID               string   `json:"id"`
	UserID           string   `json:"userId"`
	TotalXP          int      `json:"totalXp"`
	CurrentStreak    int      `json:"currentStreak"`
	LongestStreak    int      `json:"longestStreak"`
	Level            int      `json:"level"`
	Badges           []string `json:"badges"`
	CompletedQuizzes []string `json:"completedQuizzes"`
	LearnedSpecies   []string `json:"learnedSpecies"`
	WatchedVideos    []string `json:"watchedVideos"`
	FlippedCrabs     []string `json:"flippedCrabs"`
	LastActivityDate *string  `json:"lastActivityDate"`
	DifficultyLevel  int      `json:"difficultyLevel"`
}

// NewProgress returns the zero-valued record seeded for a user on first access.
func NewProgress(userID string) *Progress {
	return &Progress{
		ID:               uuid.NewString(),
		UserID:           userID,
		Level:            1,
		Badges:           []string{},
		CompletedQuizzes: []string{},
		LearnedSpecies:   []string{},
		WatchedVideos:    []string{},
		FlippedCrabs:     []string{},
		DifficultyLevel:  MinDifficulty,
	}
}

// Clone returns a deep copy.
func (p *Progress) Clone() *Progress {
	c := *p
	c.Badges = cloneStrings(p.Badges)
	c.CompletedQuizzes = cloneStrings(p.CompletedQuizzes)
	c.LearnedSpecies = cloneStrings(p.LearnedSpecies)
	c.WatchedVideos = cloneStrings(p.WatchedVideos)
	c.FlippedCrabs = cloneStrings(p.FlippedCrabs)
	if p.LastActivityDate != nil {
		d := *p.LastActivityDate
		c.LastActivityDate = &d
	}
	return &c
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Contains reports whether id is present in set.
func Contains(set []string, id string) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

// ProgressUpdate is the partial overwrite accepted by POST /api/progress/{userId}.
// Level is never accepted; it is recomputed from totalXp.
type ProgressUpdate struct {
	TotalXP          *int      `json:"totalXp"`
	CurrentStreak    *int      `json:"currentStreak"`
	LongestStreak    *int      `json:"longestStreak"`
	Badges           *[]string `json:"badges"`
	CompletedQuizzes *[]string `json:"completedQuizzes"`
	LearnedSpecies   *[]string `json:"learnedSpecies"`
	WatchedVideos    *[]string `json:"watchedVideos"`
	FlippedCrabs     *[]string `json:"flippedCrabs"`
	LastActivityDate *string   `json:"lastActivityDate"`
	DifficultyLevel  *int      `json:"difficultyLevel"`
}

func (u *ProgressUpdate) Validate() error {
	var v apperr.Validator
	if u.TotalXP != nil {
		v.Check(*u.TotalXP >= 0, "totalXp", "totalXp must not be negative")
		v.Check(*u.TotalXP <= MaxTotalXP, "totalXp", "totalXp is too large")
	}
	if u.CurrentStreak != nil {
		v.Check(*u.CurrentStreak >= 0, "currentStreak", "currentStreak must not be negative")
	}
	if u.LongestStreak != nil {
		v.Check(*u.LongestStreak >= 0, "longestStreak", "longestStreak must not be negative")
	}
	if u.DifficultyLevel != nil {
		v.Check(*u.DifficultyLevel >= MinDifficulty && *u.DifficultyLevel <= MaxDifficulty,
			"difficultyLevel", "difficultyLevel must be between 1 and 3")
	}
	if u.LastActivityDate != nil && *u.LastActivityDate != "" {
		_, err := time.Parse(DateLayout, *u.LastActivityDate)
		v.Check(err == nil, "lastActivityDate", "lastActivityDate must be a YYYY-MM-DD date")
	}
	return v.Err()
}

// Apply merges the provided fields into p. Sets are de-duplicated and the
// caller recomputes derived fields afterwards.
func (u ProgressUpdate) Apply(p *Progress) {
	if u.TotalXP != nil {
		p.TotalXP = *u.TotalXP
	}
	if u.CurrentStreak != nil {
		p.CurrentStreak = *u.CurrentStreak
	}
	if u.LongestStreak != nil {
		p.LongestStreak = *u.LongestStreak
	}
	if u.Badges != nil {
		p.Badges = dedupe(*u.Badges)
	}
	if u.CompletedQuizzes != nil {
		p.CompletedQuizzes = cloneStrings(*u.CompletedQuizzes)
	}
	if u.LearnedSpecies != nil {
		p.LearnedSpecies = dedupe(*u.LearnedSpecies)
	}
	if u.WatchedVideos != nil {
		p.WatchedVideos = dedupe(*u.WatchedVideos)
	}
	if u.FlippedCrabs != nil {
		p.FlippedCrabs = dedupe(*u.FlippedCrabs)
	}
	if u.LastActivityDate != nil {
		if *u.LastActivityDate == "" {
			p.LastActivityDate = nil
		} else {
			d := *u.LastActivityDate
			p.LastActivityDate = &d
		}
	}
	if u.DifficultyLevel != nil {
		p.DifficultyLevel = *u.DifficultyLevel
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ── Action requests ─────────────────────────────────────

type LearnSpeciesRequest struct {
	SpeciesID string `json:"speciesId"`
}

func (r *LearnSpeciesRequest) Validate() error {
	r.SpeciesID = strings.TrimSpace(r.SpeciesID)
	var v apperr.Validator
	v.Check(r.SpeciesID != "", "speciesId", "Species ID is required")
	return v.Err()
}

type FlipCrabRequest struct {
	CrabID string `json:"crabId"`
	// XPGained is accepted for client compatibility; the reward is fixed server-side.
	XPGained *int `json:"xpGained,omitempty"`
}

func (r *FlipCrabRequest) Validate() error {
	r.CrabID = strings.TrimSpace(r.CrabID)
	var v apperr.Validator
	v.Check(r.CrabID != "", "crabId", "Crab ID is required")
	return v.Err()
}

type VideoCompleteRequest struct {
	VideoID string `json:"videoId"`
}

func (r *VideoCompleteRequest) Validate() error {
	r.VideoID = strings.TrimSpace(r.VideoID)
	var v apperr.Validator
	v.Check(r.VideoID != "", "videoId", "Video ID is required")
	return v.Err()
}

// ActionResponse is returned by the flip-crab and video-complete actions.
type ActionResponse struct {
	Message  string    `json:"message"`
	Progress *Progress `json:"progress"`
	XPEarned int       `json:"xpEarned"`
}
