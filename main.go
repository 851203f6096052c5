package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/freekieb7/reel/api"
	"github.com/freekieb7/reel/auth"
	"github.com/freekieb7/reel/config"
	"github.com/freekieb7/reel/database"
	"github.com/freekieb7/reel/filesystem"
	"github.com/freekieb7/reel/http"
	"github.com/freekieb7/reel/media"
	"github.com/freekieb7/reel/schedule"
	"github.com/freekieb7/reel/session/storage"
	"github.com/freekieb7/reel/telemetry"
)

const (
	sessionPurgeInterval = 10 * time.Minute
	snapshotInterval     = 30 * time.Second
	telemetryTimeout     = 5 * time.Second
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := filesystem.NewLocalFileSystem(nil)
	cfg, err := config.Load(fs, os.Getenv)
	if err != nil {
		return err
	}

	logger, shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Level:       cfg.Level(),
		JSON:        cfg.JSONLogs(),
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	fs = filesystem.NewLocalFileSystem(logger)
	if err := cfg.Prepare(fs); err != nil {
		return err
	}
	logger.Info("directories",
		slog.String("static", cfg.StaticDir),
		slog.String("media", cfg.MediaDir),
		slog.String("thumbnails", cfg.ThumbDir),
		slog.String("database", cfg.DBPath),
	)

	db, err := database.Open(fs, cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database failed", slog.Any("error", err))
		}
	}()

	sessions := storage.NewMemorySessionStore()
	defer sessions.Close()

	authService := auth.NewService(db, sessions, cfg.SessionTTL(), logger)
	if cfg.SeedDefaultUsers {
		if err := authService.SeedDefaultUsers(); err != nil {
			return err
		}
	}

	library := media.NewLibrary(db, fs, cfg.MediaDir, logger)
	if _, err := library.Sync(); err != nil {
		logger.Warn("initial media sync failed", slog.Any("error", err))
	}
	resyncer := media.NewResyncer(library, logger)
	thumbnailer := media.NewThumbnailer(cfg.ThumbDir, cfg.FFmpegPath, fs, logger)

	handlers := api.NewHandlers(api.Dependencies{
		Database:    db,
		Auth:        authService,
		Library:     library,
		Resyncer:    resyncer,
		Thumbnailer: thumbnailer,
		Filesystem:  fs,
		Logger:      logger,
	})

	server := http.NewServer(cfg.ServiceName, handlers.Router())
	server.Authenticator = authService
	server.Fallback = api.Static(fs, cfg.StaticDir)
	server.Workers = cfg.Workers
	server.QueueSize = cfg.QueueSize
	server.Logger = logger

	scheduler, err := newScheduler(logger, cfg, resyncer, authService, db)
	if err != nil {
		return err
	}

	ln, err := http.Listen(cfg.Addr())
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Serve(groupCtx, ln)
	})
	group.Go(func() error {
		return resyncer.Run(groupCtx)
	})
	group.Go(func() error {
		return scheduler.Run(groupCtx)
	})
	if cfg.WatchMedia {
		group.Go(func() error {
			watcher := media.NewWatcher(cfg.MediaDir, resyncer.Notify, logger)
			if err := watcher.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				// Periodic resyncs still cover the library.
				logger.Warn("media watcher stopped", slog.Any("error", err))
			}
			return nil
		})
	}

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("stopped")
	return err
}

func newScheduler(logger *slog.Logger, cfg config.Config, resyncer *media.Resyncer, authService *auth.Service, db *database.Database) (*schedule.Scheduler, error) {
	scheduler := schedule.NewScheduler(logger)

	jobs := []*schedule.Job{
		schedule.NewJob("media resync").
			WithInterval(cfg.ResyncInterval).
			WithTasks(func(context.Context) error {
				resyncer.Notify("schedule")
				return nil
			}),
		schedule.NewJob("session purge").
			WithInterval(sessionPurgeInterval).
			WithTasks(func(context.Context) error {
				if purged := authService.PurgeExpired(); purged > 0 {
					logger.Debug("expired sessions purged", slog.Int("count", purged))
				}
				return nil
			}),
		schedule.NewJob("database snapshot").
			WithInterval(snapshotInterval).
			WithRetries(2).
			WithTasks(func(context.Context) error {
				return db.Save()
			}),
	}

	for _, job := range jobs {
		if err := scheduler.AddJob(job); err != nil {
			return nil, fmt.Errorf("scheduling %s: %w", job.Name(), err)
		}
	}
	return scheduler, nil
}
