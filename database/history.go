package database

import (
	"sort"
	"sync"
	"time"
)

type WatchEntry struct {
	UserID          int64     `json:"userId"`
	VideoID         int64     `json:"videoId"`
	PositionSeconds float64   `json:"positionSeconds"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type historyKey struct {
	userID  int64
	videoID int64
}

type historyTable struct {
	mu      sync.RWMutex
	entries map[historyKey]WatchEntry
}

func newHistoryTable() historyTable {
	return historyTable{entries: make(map[historyKey]WatchEntry)}
}

func (t *historyTable) load(entries []WatchEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range entries {
		t.entries[historyKey{e.UserID, e.VideoID}] = e
	}
}

func (t *historyTable) dump() []WatchEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]WatchEntry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UserID != entries[j].UserID {
			return entries[i].UserID < entries[j].UserID
		}
		return entries[i].VideoID < entries[j].VideoID
	})
	return entries
}

func (t *historyTable) deleteVideos(ids []int64) {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for key := range t.entries {
		if _, found := drop[key.videoID]; found {
			delete(t.entries, key)
		}
	}
}

// UpdateWatchHistory records the playback position of a user in a video.
func (db *Database) UpdateWatchHistory(userID, videoID int64, position float64) (WatchEntry, error) {
	// Hold the video table so a concurrent prune cannot orphan the entry.
	db.videos.mu.RLock()
	defer db.videos.mu.RUnlock()
	if _, found := db.videos.byID[videoID]; !found {
		return WatchEntry{}, ErrNotFound
	}

	t := &db.history
	t.mu.Lock()
	defer t.mu.Unlock()

	e := WatchEntry{
		UserID:          userID,
		VideoID:         videoID,
		PositionSeconds: position,
		UpdatedAt:       time.Now().UTC(),
	}
	t.entries[historyKey{userID, videoID}] = e
	db.markDirty()
	return e, nil
}

// ListWatchHistory returns the entries of a user, most recently updated first.
func (db *Database) ListWatchHistory(userID int64) []WatchEntry {
	t := &db.history
	t.mu.RLock()
	defer t.mu.RUnlock()

	var entries []WatchEntry
	for key, e := range t.entries {
		if key.userID == userID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
		}
		return entries[i].VideoID < entries[j].VideoID
	})
	return entries
}
