package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/crabby-crew/backend/internal/models"
)

func TestGetOrCreateProgressIsAtomic(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	const n = 50
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := m.GetOrCreateProgress(ctx, "u1")
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = p.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent get-or-create produced two records: %s and %s", ids[0], ids[i])
		}
	}
}

func TestProgressCopiedInAndOut(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	p, _ := m.GetOrCreateProgress(ctx, "u1")
	p.LearnedSpecies = append(p.LearnedSpecies, "blue-crab")

	fresh, _ := m.GetOrCreateProgress(ctx, "u1")
	if len(fresh.LearnedSpecies) != 0 {
		t.Error("unsaved mutation leaked into the store")
	}

	if err := m.SaveProgress(ctx, p); err != nil {
		t.Fatal(err)
	}
	p.LearnedSpecies[0] = "changed"

	fresh, _ = m.GetOrCreateProgress(ctx, "u1")
	if fresh.LearnedSpecies[0] != "blue-crab" {
		t.Errorf("saved record shares memory with caller: %v", fresh.LearnedSpecies)
	}
}

func TestSaveProgressUnknownUser(t *testing.T) {
	m := NewMemory()
	err := m.SaveProgress(context.Background(), models.NewProgress("ghost"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveProgress(ghost) = %v, want ErrNotFound", err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.CreateUser(ctx, &models.User{Username: "reef99"}); err != nil {
		t.Fatal(err)
	}
	err := m.CreateUser(ctx, &models.User{Username: "reef99"})
	if !errors.Is(err, ErrDuplicateUser) {
		t.Errorf("duplicate CreateUser = %v, want ErrDuplicateUser", err)
	}

	u, err := m.GetUserByUsername(ctx, "reef99")
	if err != nil || u.ID == "" {
		t.Errorf("GetUserByUsername = %+v, %v", u, err)
	}
	if _, err := m.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser(missing) = %v, want ErrNotFound", err)
	}
}

func TestUpdateUserRename(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a := &models.User{Username: "alpha"}
	b := &models.User{Username: "bravo"}
	m.CreateUser(ctx, a)
	m.CreateUser(ctx, b)

	a.Username = "bravo"
	if err := m.UpdateUser(ctx, a); !errors.Is(err, ErrDuplicateUser) {
		t.Errorf("rename onto taken username = %v, want ErrDuplicateUser", err)
	}

	a.Username = "charlie"
	if err := m.UpdateUser(ctx, a); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetUserByUsername(ctx, "alpha"); !errors.Is(err, ErrNotFound) {
		t.Error("old username still resolves")
	}
}

func TestUpsertLeaderboardMonotonic(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.UpsertLeaderboard(ctx, "u1", models.CategoryTotalXP, 500); err != nil {
		t.Fatal(err)
	}
	e, err := m.UpsertLeaderboard(ctx, "u1", models.CategoryTotalXP, 300)
	if err != nil {
		t.Fatal(err)
	}
	if e.Score != 500 {
		t.Errorf("lower score replaced stored one: %d", e.Score)
	}

	e, _ = m.UpsertLeaderboard(ctx, "u1", models.CategoryTotalXP, 500)
	if e.Score != 500 {
		t.Errorf("equal score = %d, want 500", e.Score)
	}

	e, _ = m.UpsertLeaderboard(ctx, "u1", models.CategoryTotalXP, 650)
	if e.Score != 650 {
		t.Errorf("higher score = %d, want 650", e.Score)
	}

	entries, _ := m.LeaderboardEntries(ctx, models.CategoryTotalXP, 0)
	if len(entries) != 1 {
		t.Errorf("entries = %d, want one per (user, category)", len(entries))
	}
}

func TestLeaderboardEntriesOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	scores := []struct {
		user  string
		score int
	}{
		{"a", 100},
		{"b", 300},
		{"c", 100},
		{"d", 200},
		{"e", 300},
	}
	for _, s := range scores {
		m.UpsertLeaderboard(ctx, s.user, models.CategoryTotalXP, s.score)
	}
	m.UpsertLeaderboard(ctx, "a", models.CategoryQuizMaster, 999)

	entries, err := m.LeaderboardEntries(ctx, models.CategoryTotalXP, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Equal scores keep insertion order.
	want := []string{"b", "e", "d", "a", "c"}
	if len(entries) != len(want) {
		t.Fatalf("entries = %d, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.UserID != want[i] {
			t.Errorf("position %d = %s, want %s", i, e.UserID, want[i])
		}
	}

	top, _ := m.LeaderboardEntries(ctx, models.CategoryTotalXP, 2)
	if len(top) != 2 || top[0].UserID != "b" || top[1].UserID != "e" {
		t.Errorf("top 2 = %+v", top)
	}
}

func TestQuizAttempts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	weekStart := time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)

	attempts := []models.QuizAttempt{
		{UserID: "u1", QuizID: "q1", XPEarned: 40, CompletedAt: weekStart.Add(-time.Hour)},
		{UserID: "u1", QuizID: "q2", XPEarned: 30, CompletedAt: weekStart.Add(time.Hour)},
		{UserID: "u2", QuizID: "q1", XPEarned: 50, CompletedAt: weekStart.Add(2 * time.Hour)},
		{UserID: "u1", QuizID: "q3", XPEarned: 25, CompletedAt: weekStart.Add(3 * time.Hour)},
	}
	for i := range attempts {
		if err := m.CreateQuizAttempt(ctx, &attempts[i]); err != nil {
			t.Fatal(err)
		}
	}

	list, _ := m.ListQuizAttempts(ctx, "u1")
	if len(list) != 3 || list[0].QuizID != "q3" || list[2].QuizID != "q1" {
		t.Errorf("ListQuizAttempts not newest first: %+v", list)
	}

	totals, _ := m.QuizXPSince(ctx, weekStart)
	got := map[string]int{}
	for _, u := range totals {
		got[u.UserID] = u.XP
	}
	if got["u1"] != 55 || got["u2"] != 50 || len(got) != 2 {
		t.Errorf("QuizXPSince = %v, want u1=55 u2=50", got)
	}
}

func TestSaveQuizResult(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	at := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	orphan := &models.QuizAttempt{UserID: "ghost", QuizID: "q1", XPEarned: 40, CompletedAt: at}
	if err := m.SaveQuizResult(ctx, orphan, models.NewProgress("ghost")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SaveQuizResult(ghost) = %v, want ErrNotFound", err)
	}
	if totals, _ := m.QuizXPSince(ctx, at.Add(-time.Hour)); len(totals) != 0 {
		t.Errorf("failed save left attempts behind: %+v", totals)
	}

	p, _ := m.GetOrCreateProgress(ctx, "u1")
	p.TotalXP = 40
	a := &models.QuizAttempt{UserID: "u1", QuizID: "q1", XPEarned: 40, CompletedAt: at}
	if err := m.SaveQuizResult(ctx, a, p); err != nil {
		t.Fatal(err)
	}
	if a.ID == "" {
		t.Error("attempt id not assigned")
	}
	stored, _ := m.GetOrCreateProgress(ctx, "u1")
	list, _ := m.ListQuizAttempts(ctx, "u1")
	if stored.TotalXP != 40 || len(list) != 1 {
		t.Errorf("progress xp = %d, attempts = %d; want 40 and 1", stored.TotalXP, len(list))
	}
}

func TestSharedAchievementsNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		m.CreatePublicAchievement(ctx, &models.PublicAchievement{
			UserID:   "u1",
			BadgeID:  fmt.Sprintf("badge-%d", i),
			EarnedAt: base.Add(time.Duration(i) * time.Hour),
			IsShared: i != 2,
		})
	}

	got, _ := m.ListSharedAchievements(ctx, 3)
	want := []string{"badge-4", "badge-3", "badge-1"}
	if len(got) != len(want) {
		t.Fatalf("got %d achievements, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].BadgeID != want[i] {
			t.Errorf("position %d = %s, want %s", i, got[i].BadgeID, want[i])
		}
	}
}

func TestChallengeParticipants(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.GetChallengeParticipant(ctx, "u1", "c1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing participant = %v, want ErrNotFound", err)
	}

	p := &models.ChallengeParticipant{UserID: "u1", ChallengeID: "c1", Progress: 1}
	if err := m.SaveChallengeParticipant(ctx, p); err != nil {
		t.Fatal(err)
	}
	firstID := p.ID

	again := &models.ChallengeParticipant{UserID: "u1", ChallengeID: "c1", Progress: 2}
	m.SaveChallengeParticipant(ctx, again)
	if again.ID != firstID {
		t.Errorf("save created a second participant: %s != %s", again.ID, firstID)
	}

	got, _ := m.GetChallengeParticipant(ctx, "u1", "c1")
	if got.Progress != 2 {
		t.Errorf("progress = %d, want 2", got.Progress)
	}
}
