package media

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/freekieb7/reel/database"
	"github.com/freekieb7/reel/filesystem"
)

const VideoExtension = ".mp4"

var ErrLibraryUnavailable = errors.New("media: library directory unavailable")

// Library mirrors the video files of one directory into the database.
type Library struct {
	db     *database.Database
	fs     filesystem.Filesystem
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

type SyncResult struct {
	Found   int
	Removed []database.Video
}

func NewLibrary(db *database.Database, fs filesystem.Filesystem, dir string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Library{db: db, fs: fs, dir: dir, logger: logger}
}

func (lib *Library) Dir() string {
	return lib.dir
}

// Path is the absolute location of a video's file.
func (lib *Library) Path(video database.Video) (string, error) {
	return filesystem.SafeJoin(lib.dir, video.Filename)
}

// Sync upserts every video file in the directory and prunes the videos whose
// file has gone. A missing directory leaves the database untouched.
func (lib *Library) Sync() (SyncResult, error) {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	entries, err := lib.fs.ListDirectory(lib.dir)
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: %w", ErrLibraryUnavailable, err)
	}

	keep := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Mode().IsRegular() || !filesystem.HasExtension(entry.Name(), VideoExtension) {
			continue
		}
		if _, err := lib.db.UpsertVideo(TitleFromFilename(entry.Name()), entry.Name()); err != nil {
			return SyncResult{}, fmt.Errorf("media: upsert %s: %w", entry.Name(), err)
		}
		keep = append(keep, entry.Name())
	}

	removed := lib.db.PruneVideos(keep)
	for _, video := range removed {
		lib.logger.Info("video removed", slog.Int64("video_id", video.ID), slog.String("filename", video.Filename))
	}

	return SyncResult{Found: len(keep), Removed: removed}, nil
}

// TitleFromFilename drops the extension and turns '_' and '-' into spaces.
func TitleFromFilename(name string) string {
	title := strings.TrimSuffix(name, filepath.Ext(name))
	title = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, title)
	if title == "" {
		return name
	}
	return title
}
