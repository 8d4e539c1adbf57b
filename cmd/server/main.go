package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crabby-crew/backend/internal/auth"
	"github.com/crabby-crew/backend/internal/config"
	"github.com/crabby-crew/backend/internal/database"
	"github.com/crabby-crew/backend/internal/gamification"
	"github.com/crabby-crew/backend/internal/logger"
	"github.com/crabby-crew/backend/internal/scheduler"
	"github.com/crabby-crew/backend/internal/server"
	"github.com/crabby-crew/backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	if err := run(cfg, logg); err != nil {
		logg.Fatal("server exited", "error", err)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Storage
	store, err := openStore(cfg, logg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Sessions
	var sessionStore auth.SessionStore
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		rs, err := auth.NewRedisSessions(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rs.Close()
		sessionStore = rs
	default:
		sessionStore = auth.NewMemorySessions()
	}
	sessions := auth.NewManager(sessionStore, cfg.Session)

	// Services
	gameService := gamification.NewService(store, logg.With("service", "gamification"), gamification.WithLocation(loc))

	if n, err := gameService.RotateWeeklyChallenges(ctx); err != nil {
		logg.Error("seed weekly challenges failed", "error", err)
	} else if n > 0 {
		logg.Info("weekly challenges seeded", "created", n)
	}
	if cfg.Seed.DemoData {
		n, err := gameService.SeedDemoData(ctx)
		if err != nil {
			logg.Error("seed demo data failed", "error", err)
		} else if n > 0 {
			logg.Info("demo data seeded", "users", n)
		}
	}

	sched := scheduler.New(loc, gameService, sessions, logg)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	// HTTP
	handler := server.NewRouter(server.RouterConfig{
		AuthHandler:         auth.NewHandler(store, sessions, logg.With("service", "auth")),
		GamificationHandler: gamification.NewHandler(gameService, logg),
		Sessions:            sessions,
		AllowedOrigins:      cfg.HTTP.AllowedOrigins,
		Log:                 logg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info("server starting", "port", cfg.HTTP.Port, "storage", cfg.Storage.Driver, "sessions", cfg.Session.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(cfg *config.Config, logg *logger.Logger) (storage.Store, error) {
	if cfg.Storage.Driver != config.DriverPostgres {
		logg.Info("using in-memory storage")
		return storage.NewMemory(), nil
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	logg.Info("connected to postgres, migrations applied")
	return storage.NewPostgres(db), nil
}
