package database

import (
	"sort"
	"sync"
	"time"
)

type Video struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Filename        string    `json:"filename"`
	Description     string    `json:"description"`
	DurationSeconds int       `json:"durationSeconds"`
	CreatedAt       time.Time `json:"createdAt"`
}

type videoTable struct {
	mu         sync.RWMutex
	byID       map[int64]Video
	byFilename map[string]int64
	nextID     int64
}

func newVideoTable() videoTable {
	return videoTable{
		byID:       make(map[int64]Video),
		byFilename: make(map[string]int64),
		nextID:     1,
	}
}

func (t *videoTable) load(videos []Video, nextID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, v := range videos {
		t.byID[v.ID] = v
		t.byFilename[v.Filename] = v.ID
		nextID = max(nextID, v.ID+1)
	}
	t.nextID = max(nextID, 1)
}

func (t *videoTable) dump() ([]Video, int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sorted(), t.nextID
}

// sorted must be called with the lock held.
func (t *videoTable) sorted() []Video {
	videos := make([]Video, 0, len(t.byID))
	for _, v := range t.byID {
		videos = append(videos, v)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].ID < videos[j].ID })
	return videos
}

// UpsertVideo inserts a video keyed by filename, or refreshes the title of the
// existing one. The id of a known filename never changes.
func (db *Database) UpsertVideo(title, filename string) (Video, error) {
	t := &db.videos
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, found := t.byFilename[filename]; found {
		v := t.byID[id]
		if v.Title != title {
			v.Title = title
			t.byID[id] = v
			db.markDirty()
		}
		return v, nil
	}

	v := Video{
		ID:        t.nextID,
		Title:     title,
		Filename:  filename,
		CreatedAt: time.Now().UTC(),
	}
	t.nextID++
	t.byID[v.ID] = v
	t.byFilename[filename] = v.ID
	db.markDirty()
	return v, nil
}

// PruneVideos deletes every video whose filename is not in keep, together with
// its watch history, and returns the removed videos.
func (db *Database) PruneVideos(keep []string) []Video {
	keepSet := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		keepSet[name] = struct{}{}
	}

	// Lock order: videos, then history.
	t := &db.videos
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []Video
	for id, v := range t.byID {
		if _, found := keepSet[v.Filename]; found {
			continue
		}
		delete(t.byID, id)
		delete(t.byFilename, v.Filename)
		removed = append(removed, v)
	}
	if len(removed) == 0 {
		return nil
	}

	ids := make([]int64, len(removed))
	for i, v := range removed {
		ids[i] = v.ID
	}
	db.history.deleteVideos(ids)
	db.markDirty()

	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	return removed
}

func (db *Database) VideoByID(id int64) (Video, error) {
	t := &db.videos
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, found := t.byID[id]
	if !found {
		return Video{}, ErrNotFound
	}
	return v, nil
}

// ListVideos returns all videos ordered by id.
func (db *Database) ListVideos() []Video {
	t := &db.videos
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sorted()
}
