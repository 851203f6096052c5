package media

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/freekieb7/reel/filesystem"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher turns changes to video files in a directory into resync
// notifications. Bursts of events within the debounce window notify once.
type Watcher struct {
	dir      string
	notify   func(reason string)
	debounce time.Duration
	logger   *slog.Logger
}

func NewWatcher(dir string, notify func(reason string), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{dir: dir, notify: notify, debounce: DefaultDebounce, logger: logger}
}

func (w *Watcher) WithDebounce(debounce time.Duration) *Watcher {
	w.debounce = debounce
	return w
}

func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("media: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("media: watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching media directory", slog.String("dir", w.dir))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("media change", slog.String("name", event.Name), slog.String("op", event.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		case <-timer.C:
			w.notify("fsnotify")
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !relevantName(event.Name) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Write)
}

func relevantName(name string) bool {
	return filesystem.HasExtension(name, VideoExtension)
}
