package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crabby-crew/backend/internal/logger"
)

const (
	// Sunday 00:00, when a new challenge week begins.
	WeeklyRotationSpec = "0 0 * * 0"
	SessionPurgeSpec   = "@hourly"
)

// ChallengeRotator seeds the current week's challenges when none are active.
type ChallengeRotator interface {
	RotateWeeklyChallenges(ctx context.Context) (int, error)
}

// SessionPurger drops expired sessions.
type SessionPurger interface {
	Purge(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron     *cron.Cron
	rotator  ChallengeRotator
	sessions SessionPurger
	log      *logger.Logger
}

func New(loc *time.Location, rotator ChallengeRotator, sessions SessionPurger, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		rotator:  rotator,
		sessions: sessions,
		log:      log.With("service", "scheduler"),
	}
}

// Start registers the jobs and runs them until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(WeeklyRotationSpec, func() { s.rotateChallenges(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(SessionPurgeSpec, func() { s.purgeSessions(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("cron scheduler started")

	go func() {
		<-ctx.Done()
		stopped := s.cron.Stop()
		<-stopped.Done()
		s.log.Info("cron scheduler stopped")
	}()
	return nil
}

func (s *Scheduler) rotateChallenges(ctx context.Context) {
	n, err := s.rotator.RotateWeeklyChallenges(ctx)
	if err != nil {
		s.log.Error("weekly challenge rotation failed", "error", err)
		return
	}
	s.log.Info("weekly challenges rotated", "created", n)
}

func (s *Scheduler) purgeSessions(ctx context.Context) {
	n, err := s.sessions.Purge(ctx)
	if err != nil {
		s.log.Error("session purge failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("expired sessions purged", "removed", n)
	}
}
