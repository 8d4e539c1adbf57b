package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crabby-crew/backend/internal/models"
)

// Memory keeps everything in process. Values are copied on the way in and out
// so callers never share state with the store.
type Memory struct {
	mu sync.RWMutex

	users        map[string]*models.User
	usernames    map[string]string
	progress     map[string]*models.Progress
	attempts     []models.QuizAttempt
	leaderboard  []*models.LeaderboardEntry
	lbIndex      map[string]int
	achievements []models.PublicAchievement
	challenges   []models.WeeklyChallenge
	participants map[string]*models.ChallengeParticipant

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:        make(map[string]*models.User),
		usernames:    make(map[string]string),
		progress:     make(map[string]*models.Progress),
		lbIndex:      make(map[string]int),
		participants: make(map[string]*models.ChallengeParticipant),
		now:          time.Now,
	}
}

func (m *Memory) Close() error { return nil }

// ── Users ───────────────────────────────────────────────

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usernames[username]
	if !ok {
		return nil, ErrNotFound
	}
	c := *m.users[id]
	return &c, nil
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.usernames[user.Username]; taken {
		return ErrDuplicateUser
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	c := *user
	m.users[c.ID] = &c
	m.usernames[c.Username] = c.ID
	return nil
}

func (m *Memory) UpdateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.Username != user.Username {
		if _, taken := m.usernames[user.Username]; taken {
			return ErrDuplicateUser
		}
		delete(m.usernames, existing.Username)
		m.usernames[user.Username] = user.ID
	}
	c := *user
	m.users[c.ID] = &c
	return nil
}

// ── Progress ────────────────────────────────────────────

func (m *Memory) GetOrCreateProgress(_ context.Context, userID string) (*models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.progress[userID]
	if !ok {
		p = models.NewProgress(userID)
		m.progress[userID] = p
	}
	return p.Clone(), nil
}

func (m *Memory) SaveProgress(_ context.Context, p *models.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.progress[p.UserID]; !ok {
		return ErrNotFound
	}
	m.progress[p.UserID] = p.Clone()
	return nil
}

// ── Quiz Attempts ───────────────────────────────────────

func (m *Memory) CreateQuizAttempt(_ context.Context, a *models.QuizAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m.attempts = append(m.attempts, *a)
	return nil
}

func (m *Memory) SaveQuizResult(_ context.Context, a *models.QuizAttempt, p *models.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.progress[p.UserID]; !ok {
		return ErrNotFound
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m.attempts = append(m.attempts, *a)
	m.progress[p.UserID] = p.Clone()
	return nil
}

func (m *Memory) ListQuizAttempts(_ context.Context, userID string) ([]models.QuizAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.QuizAttempt{}
	for i := len(m.attempts) - 1; i >= 0; i-- {
		if m.attempts[i].UserID == userID {
			out = append(out, m.attempts[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

func (m *Memory) QuizXPSince(_ context.Context, since time.Time) ([]UserXP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := make(map[string]int)
	var order []string
	for _, a := range m.attempts {
		if a.CompletedAt.Before(since) {
			continue
		}
		if _, seen := totals[a.UserID]; !seen {
			order = append(order, a.UserID)
		}
		totals[a.UserID] += a.XPEarned
	}

	out := make([]UserXP, 0, len(order))
	for _, id := range order {
		out = append(out, UserXP{UserID: id, XP: totals[id]})
	}
	return out, nil
}

// ── Leaderboards ────────────────────────────────────────

func leaderboardKey(userID, category string) string {
	return category + "\x00" + userID
}

func (m *Memory) UpsertLeaderboard(_ context.Context, userID, category string, score int) (*models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := leaderboardKey(userID, category)
	if idx, ok := m.lbIndex[key]; ok {
		e := m.leaderboard[idx]
		if e.Score < score {
			e.Score = score
			e.LastUpdated = m.now()
		}
		c := *e
		return &c, nil
	}

	e := &models.LeaderboardEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Category:    category,
		Score:       score,
		LastUpdated: m.now(),
	}
	m.lbIndex[key] = len(m.leaderboard)
	m.leaderboard = append(m.leaderboard, e)
	c := *e
	return &c, nil
}

func (m *Memory) LeaderboardEntries(_ context.Context, category string, limit int) ([]models.LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.LeaderboardEntry{}
	for _, e := range m.leaderboard {
		if e.Category == category {
			out = append(out, *e)
		}
	}
	// Stable sort keeps insertion order between equal scores.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Achievements ────────────────────────────────────────

func (m *Memory) CreatePublicAchievement(_ context.Context, a *models.PublicAchievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.EarnedAt.IsZero() {
		a.EarnedAt = m.now()
	}
	m.achievements = append(m.achievements, *a)
	return nil
}

func (m *Memory) ListSharedAchievements(_ context.Context, limit int) ([]models.PublicAchievement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.PublicAchievement{}
	for i := len(m.achievements) - 1; i >= 0; i-- {
		if m.achievements[i].IsShared {
			out = append(out, m.achievements[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EarnedAt.After(out[j].EarnedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Weekly Challenges ───────────────────────────────────

func (m *Memory) CreateWeeklyChallenge(_ context.Context, c *models.WeeklyChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.challenges = append(m.challenges, *c)
	return nil
}

func (m *Memory) ActiveWeeklyChallenges(_ context.Context, at time.Time) ([]models.WeeklyChallenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.WeeklyChallenge{}
	for _, c := range m.challenges {
		if c.ActiveAt(at) {
			out = append(out, c)
		}
	}
	return out, nil
}

func participantKey(userID, challengeID string) string {
	return challengeID + "\x00" + userID
}

func (m *Memory) GetChallengeParticipant(_ context.Context, userID, challengeID string) (*models.ChallengeParticipant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.participants[participantKey(userID, challengeID)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m *Memory) SaveChallengeParticipant(_ context.Context, p *models.ChallengeParticipant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := participantKey(p.UserID, p.ChallengeID)
	if existing, ok := m.participants[key]; ok {
		p.ID = existing.ID
	} else if p.ID == "" {
		p.ID = uuid.NewString()
	}
	c := *p
	m.participants[key] = &c
	return nil
}
