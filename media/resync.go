package media

import (
	"context"
	"log/slog"
)

// Resyncer is the only caller of Library.Sync once running. Other components
// ask it for a sync through Notify or SyncNow.
type Resyncer struct {
	library *Library
	logger  *slog.Logger
	pending chan string
	waiters chan chan error
}

func NewResyncer(library *Library, logger *slog.Logger) *Resyncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resyncer{
		library: library,
		logger:  logger,
		pending: make(chan string, 1),
		waiters: make(chan chan error),
	}
}

// Notify queues a sync without waiting. Requests made while one is already
// queued are merged into it.
func (r *Resyncer) Notify(reason string) {
	select {
	case r.pending <- reason:
	default:
	}
}

// SyncNow asks for a sync and waits until it has completed.
func (r *Resyncer) SyncNow(ctx context.Context) error {
	done := make(chan error, 1)
	select {
	case r.waiters <- done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes sync requests until ctx ends.
func (r *Resyncer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case reason := <-r.pending:
			_ = r.sync(reason)
		case done := <-r.waiters:
			done <- r.sync("request")
		}
	}
}

func (r *Resyncer) sync(reason string) error {
	result, err := r.library.Sync()
	if err != nil {
		r.logger.Warn("library sync failed", slog.String("reason", reason), slog.Any("error", err))
		return err
	}
	r.logger.Debug("library synced",
		slog.String("reason", reason),
		slog.Int("found", result.Found),
		slog.Int("removed", len(result.Removed)),
	)
	return nil
}
