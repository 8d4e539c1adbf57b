package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/crabby-crew/backend/internal/models"
)

// Postgres backs the Store with the tables created by the embedded migrations.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Close() error { return s.db.Close() }

// ── Users ───────────────────────────────────────────────

const userColumns = `id, username, COALESCE(display_name, username), COALESCE(avatar_emoji, ''),
	COALESCE(is_online, false), COALESCE(last_seen, NOW()), created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarEmoji,
		&u.IsOnline, &u.LastSeen, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (s *Postgres) GetUser(ctx context.Context, id string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, avatar_emoji, is_online, last_seen, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.DisplayName, user.AvatarEmoji,
		user.IsOnline, user.LastSeen, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Postgres) UpdateUser(ctx context.Context, user *models.User) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = $2, display_name = $3, avatar_emoji = $4,
		    is_online = $5, last_seen = $6, updated_at = $7
		 WHERE id = $1`,
		user.ID, user.Username, user.DisplayName, user.AvatarEmoji,
		user.IsOnline, user.LastSeen, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ── Progress ────────────────────────────────────────────

func (s *Postgres) GetOrCreateProgress(ctx context.Context, userID string) (*models.Progress, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_progress (id, user_id) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		uuid.NewString(), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}

	var (
		p                                       models.Progress
		badges, quizzes, species, videos, crabs []byte
		lastActivity                            sql.NullString
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, user_id, total_xp, current_streak, longest_streak, level,
		        badges, completed_quizzes, learned_species, watched_videos, flipped_crabs,
		        last_activity_date, difficulty_level
		 FROM game_progress WHERE user_id = $1`,
		userID,
	).Scan(&p.ID, &p.UserID, &p.TotalXP, &p.CurrentStreak, &p.LongestStreak, &p.Level,
		&badges, &quizzes, &species, &videos, &crabs,
		&lastActivity, &p.DifficultyLevel)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	for _, col := range []struct {
		raw []byte
		dst *[]string
	}{
		{badges, &p.Badges},
		{quizzes, &p.CompletedQuizzes},
		{species, &p.LearnedSpecies},
		{videos, &p.WatchedVideos},
		{crabs, &p.FlippedCrabs},
	} {
		if err := decodeSet(col.raw, col.dst); err != nil {
			return nil, err
		}
	}
	if lastActivity.Valid {
		p.LastActivityDate = &lastActivity.String
	}
	return &p, nil
}

func decodeSet(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode progress set: %w", err)
	}
	if *dst == nil {
		*dst = []string{}
	}
	return nil
}

func encodeSet(s []string) []byte {
	if s == nil {
		s = []string{}
	}
	b, _ := json.Marshal(s)
	return b
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Postgres) SaveProgress(ctx context.Context, p *models.Progress) error {
	return saveProgress(ctx, s.db, p)
}

func saveProgress(ctx context.Context, db execer, p *models.Progress) error {
	result, err := db.ExecContext(ctx,
		`UPDATE game_progress SET
		    total_xp = $2, current_streak = $3, longest_streak = $4, level = $5,
		    badges = $6, completed_quizzes = $7, learned_species = $8,
		    watched_videos = $9, flipped_crabs = $10,
		    last_activity_date = $11, difficulty_level = $12
		 WHERE user_id = $1`,
		p.UserID, p.TotalXP, p.CurrentStreak, p.LongestStreak, p.Level,
		encodeSet(p.Badges), encodeSet(p.CompletedQuizzes), encodeSet(p.LearnedSpecies),
		encodeSet(p.WatchedVideos), encodeSet(p.FlippedCrabs),
		p.LastActivityDate, p.DifficultyLevel,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Quiz Attempts ───────────────────────────────────────

func (s *Postgres) CreateQuizAttempt(ctx context.Context, a *models.QuizAttempt) error {
	return insertQuizAttempt(ctx, s.db, a)
}

func insertQuizAttempt(ctx context.Context, db execer, a *models.QuizAttempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO quiz_attempts (id, user_id, quiz_id, score, total_questions, xp_earned, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, a.QuizID, a.Score, a.TotalQuestions, a.XPEarned, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz attempt: %w", err)
	}
	return nil
}

func (s *Postgres) SaveQuizResult(ctx context.Context, a *models.QuizAttempt, p *models.Progress) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin quiz result: %w", err)
	}
	defer tx.Rollback()

	if err := insertQuizAttempt(ctx, tx, a); err != nil {
		return err
	}
	if err := saveProgress(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit quiz result: %w", err)
	}
	return nil
}

func (s *Postgres) ListQuizAttempts(ctx context.Context, userID string) ([]models.QuizAttempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, quiz_id, score, total_questions, xp_earned, completed_at
		 FROM quiz_attempts WHERE user_id = $1
		 ORDER BY completed_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list quiz attempts: %w", err)
	}
	defer rows.Close()

	attempts := []models.QuizAttempt{}
	for rows.Next() {
		var a models.QuizAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.TotalQuestions, &a.XPEarned, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan quiz attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *Postgres) QuizXPSince(ctx context.Context, since time.Time) ([]UserXP, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, SUM(xp_earned)
		 FROM quiz_attempts
		 WHERE completed_at >= $1
		 GROUP BY user_id`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("weekly quiz xp: %w", err)
	}
	defer rows.Close()

	var out []UserXP
	for rows.Next() {
		var u UserXP
		if err := rows.Scan(&u.UserID, &u.XP); err != nil {
			return nil, fmt.Errorf("scan weekly quiz xp: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ── Leaderboards ────────────────────────────────────────

func (s *Postgres) UpsertLeaderboard(ctx context.Context, userID, category string, score int) (*models.LeaderboardEntry, error) {
	// The WHERE clause keeps the stored score when the new one is not better.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leaderboards (id, user_id, category, score, last_updated)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (user_id, category) DO UPDATE
		    SET score = EXCLUDED.score, last_updated = NOW()
		    WHERE leaderboards.score < EXCLUDED.score`,
		uuid.NewString(), userID, category, score,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert leaderboard: %w", err)
	}

	var e models.LeaderboardEntry
	err = s.db.QueryRowContext(ctx,
		`SELECT id, user_id, category, score, last_updated
		 FROM leaderboards WHERE user_id = $1 AND category = $2`,
		userID, category,
	).Scan(&e.ID, &e.UserID, &e.Category, &e.Score, &e.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard entry: %w", err)
	}
	return &e, nil
}

func (s *Postgres) LeaderboardEntries(ctx context.Context, category string, limit int) ([]models.LeaderboardEntry, error) {
	query := `SELECT id, user_id, category, score, last_updated
		 FROM leaderboards WHERE category = $1
		 ORDER BY score DESC, seq ASC`
	args := []any{category}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &e.Score, &e.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ── Achievements ────────────────────────────────────────

func (s *Postgres) CreatePublicAchievement(ctx context.Context, a *models.PublicAchievement) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.EarnedAt.IsZero() {
		a.EarnedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO public_achievements (id, user_id, badge_id, earned_at, is_shared)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.UserID, a.BadgeID, a.EarnedAt, a.IsShared,
	)
	if err != nil {
		return fmt.Errorf("insert public achievement: %w", err)
	}
	return nil
}

func (s *Postgres) ListSharedAchievements(ctx context.Context, limit int) ([]models.PublicAchievement, error) {
	query := `SELECT id, user_id, badge_id, earned_at, is_shared
		 FROM public_achievements
		 WHERE is_shared
		 ORDER BY earned_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list public achievements: %w", err)
	}
	defer rows.Close()

	out := []models.PublicAchievement{}
	for rows.Next() {
		var a models.PublicAchievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.BadgeID, &a.EarnedAt, &a.IsShared); err != nil {
			return nil, fmt.Errorf("scan public achievement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ── Weekly Challenges ───────────────────────────────────

func (s *Postgres) CreateWeeklyChallenge(ctx context.Context, c *models.WeeklyChallenge) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO weekly_challenges
		    (id, title, description, target_metric, target_value, xp_reward, start_date, end_date, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Title, c.Description, c.TargetMetric, c.TargetValue, c.XPReward,
		c.StartDate, c.EndDate, c.IsActive,
	)
	if err != nil {
		return fmt.Errorf("insert weekly challenge: %w", err)
	}
	return nil
}

func (s *Postgres) ActiveWeeklyChallenges(ctx context.Context, at time.Time) ([]models.WeeklyChallenge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, target_metric, target_value, xp_reward,
		        start_date, end_date, COALESCE(is_active, false)
		 FROM weekly_challenges
		 WHERE is_active AND start_date <= $1 AND end_date >= $1
		 ORDER BY start_date, title`,
		at,
	)
	if err != nil {
		return nil, fmt.Errorf("active weekly challenges: %w", err)
	}
	defer rows.Close()

	out := []models.WeeklyChallenge{}
	for rows.Next() {
		var c models.WeeklyChallenge
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.TargetMetric, &c.TargetValue,
			&c.XPReward, &c.StartDate, &c.EndDate, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scan weekly challenge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) GetChallengeParticipant(ctx context.Context, userID, challengeID string) (*models.ChallengeParticipant, error) {
	var p models.ChallengeParticipant
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, challenge_id, COALESCE(progress, 0), COALESCE(completed, false), completed_at
		 FROM challenge_participants WHERE user_id = $1 AND challenge_id = $2`,
		userID, challengeID,
	).Scan(&p.ID, &p.UserID, &p.ChallengeID, &p.Progress, &p.Completed, &p.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge participant: %w", err)
	}
	return &p, nil
}

func (s *Postgres) SaveChallengeParticipant(ctx context.Context, p *models.ChallengeParticipant) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO challenge_participants (id, user_id, challenge_id, progress, completed, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, challenge_id) DO UPDATE
		    SET progress = EXCLUDED.progress, completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at
		 RETURNING id`,
		p.ID, p.UserID, p.ChallengeID, p.Progress, p.Completed, p.CompletedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("save challenge participant: %w", err)
	}
	return nil
}
