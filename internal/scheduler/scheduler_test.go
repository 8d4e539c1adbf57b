package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crabby-crew/backend/internal/logger"
)

type fakeRotator struct {
	calls int
	err   error
}

func (f *fakeRotator) RotateWeeklyChallenges(context.Context) (int, error) {
	f.calls++
	return 2, f.err
}

type fakePurger struct{ calls int }

func (f *fakePurger) Purge(context.Context) (int, error) {
	f.calls++
	return 3, nil
}

func TestWeeklyRotationRunsSundayMidnight(t *testing.T) {
	sched, err := cron.ParseStandard(WeeklyRotationSpec)
	if err != nil {
		t.Fatal(err)
	}

	wed := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	next := sched.Next(wed)
	want := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next rotation = %v, want %v", next, want)
	}
}

func TestSessionPurgeSpecParses(t *testing.T) {
	if _, err := cron.ParseStandard(SessionPurgeSpec); err != nil {
		t.Errorf("ParseStandard(%q): %v", SessionPurgeSpec, err)
	}
}

func TestJobsCallCollaborators(t *testing.T) {
	rot := &fakeRotator{}
	purge := &fakePurger{}
	s := New(time.UTC, rot, purge, logger.Nop())
	ctx := context.Background()

	s.rotateChallenges(ctx)
	rot.err = errors.New("db down")
	s.rotateChallenges(ctx)
	s.purgeSessions(ctx)

	if rot.calls != 2 || purge.calls != 1 {
		t.Errorf("rotate calls = %d, purge calls = %d", rot.calls, purge.calls)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	s := New(time.UTC, &fakeRotator{}, &fakePurger{}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(s.cron.Entries()); n != 2 {
		t.Errorf("registered %d jobs, want 2", n)
	}
	cancel()
}
