// Package database keeps users, videos and watch history in memory. Every table
// has its own lock; a JSON snapshot of all tables is written to disk on demand.
package database

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/freekieb7/reel/filesystem"
	"github.com/goccy/go-json"
)

var (
	ErrNotFound   = errors.New("database: record not found")
	ErrUserExists = errors.New("database: username already taken")
	ErrClosed     = errors.New("database: closed")
)

const snapshotVersion = 1

type Database struct {
	users   userTable
	videos  videoTable
	history historyTable

	fs     filesystem.Filesystem
	path   string
	logger *slog.Logger
	dirty  atomic.Bool
	closed atomic.Bool
}

// Open loads the snapshot at path when it exists. An empty path keeps the
// database in memory only.
func Open(fs filesystem.Filesystem, path string, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db := &Database{
		users:   newUserTable(),
		videos:  newVideoTable(),
		history: newHistoryTable(),
		fs:      fs,
		path:    path,
		logger:  logger,
	}
	if path == "" {
		return db, nil
	}

	content, err := fs.ReadFile(path)
	if errors.Is(err, filesystem.ErrFileNotFound) {
		logger.Info("starting with an empty database", slog.String("path", path))
		return db, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database: reading snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return nil, fmt.Errorf("database: decoding snapshot %s: %w", path, err)
	}
	db.restore(snap)

	logger.Info("database loaded",
		slog.String("path", path),
		slog.Int("users", len(snap.Users)),
		slog.Int("videos", len(snap.Videos)),
		slog.Int("history", len(snap.History)),
	)
	return db, nil
}

type snapshot struct {
	Version   int          `json:"version"`
	SavedAt   time.Time    `json:"savedAt"`
	Users     []User       `json:"users"`
	Videos    []Video      `json:"videos"`
	History   []WatchEntry `json:"history"`
	NextUser  int64        `json:"nextUserId"`
	NextVideo int64        `json:"nextVideoId"`
}

func (db *Database) restore(snap snapshot) {
	db.users.load(snap.Users, snap.NextUser)
	db.videos.load(snap.Videos, snap.NextVideo)
	db.history.load(snap.History)
}

func (db *Database) markDirty() {
	db.dirty.Store(true)
}

// Save writes a snapshot when something changed since the last one.
func (db *Database) Save() error {
	if db.path == "" || !db.dirty.Swap(false) {
		return nil
	}

	users, nextUser := db.users.dump()
	videos, nextVideo := db.videos.dump()
	snap := snapshot{
		Version:   snapshotVersion,
		SavedAt:   time.Now().UTC(),
		Users:     users,
		Videos:    videos,
		History:   db.history.dump(),
		NextUser:  nextUser,
		NextVideo: nextVideo,
	}

	content, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		db.markDirty()
		return fmt.Errorf("database: encoding snapshot: %w", err)
	}
	if err := db.fs.WriteFile(db.path, content); err != nil {
		db.markDirty()
		return fmt.Errorf("database: writing snapshot: %w", err)
	}

	db.logger.Debug("database snapshot written", slog.String("path", db.path), slog.Int("bytes", len(content)))
	return nil
}

// Close flushes pending changes. Further calls are no-ops.
func (db *Database) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	return db.Save()
}
