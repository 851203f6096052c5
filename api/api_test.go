package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freekieb7/reel/auth"
	"github.com/freekieb7/reel/database"
	"github.com/freekieb7/reel/filesystem"
	"github.com/freekieb7/reel/http"
	"github.com/freekieb7/reel/media"
	"github.com/freekieb7/reel/session/storage"
	"github.com/freekieb7/reel/test"
)

type fixture struct {
	srv       *http.Server
	db        *database.Database
	auth      *auth.Service
	mediaDir  string
	staticDir string
	thumbs    *media.Thumbnailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	mediaDir := filepath.Join(root, "media")
	staticDir := filepath.Join(root, "public")
	require.NoError(t, os.MkdirAll(mediaDir, 0o755))
	require.NoError(t, os.MkdirAll(staticDir, 0o755))

	fs := filesystem.NewLocalFileSystem(nil)
	db, err := database.Open(fs, "", nil)
	require.NoError(t, err)

	authService := auth.NewService(db, storage.NewMemorySessionStore(), 24*time.Hour, nil).WithIterations(1)
	library := media.NewLibrary(db, fs, mediaDir, nil)
	resyncer := media.NewResyncer(library, nil)
	thumbs := media.NewThumbnailer(filepath.Join(root, "thumbs"), "", fs, nil).
		WithRunner(func(ctx context.Context, name string, args ...string) error {
			return os.WriteFile(args[len(args)-1], []byte("jpeg"), 0o644)
		})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go resyncer.Run(ctx)

	handlers := NewHandlers(Dependencies{
		Database:    db,
		Auth:        authService,
		Library:     library,
		Resyncer:    resyncer,
		Thumbnailer: thumbs,
		Filesystem:  fs,
	})

	srv := http.NewServer("test", handlers.Router())
	srv.Authenticator = authService
	srv.Fallback = Static(fs, staticDir)

	return &fixture{
		srv:       srv,
		db:        db,
		auth:      authService,
		mediaDir:  mediaDir,
		staticDir: staticDir,
		thumbs:    thumbs,
	}
}

// login registers a user and returns a Cookie header line for its session.
func (f *fixture) login(t *testing.T, username string) (string, database.User) {
	t.Helper()

	_, err := f.auth.Register(username, "password123")
	require.NoError(t, err)
	user, sess, err := f.auth.Login(username, "password123")
	require.NoError(t, err)
	return "Cookie: " + auth.SessionCookieName + "=" + sess.Token + "\r\n", user
}

// addVideo writes a video of size bytes and stores it.
func (f *fixture) addVideo(t *testing.T, filename string, size int) database.Video {
	t.Helper()

	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 251)
	}
	test.WriteFile(t, filepath.Join(f.mediaDir, filename), content)

	video, err := f.db.UpsertVideo(media.TitleFromFilename(filename), filename)
	require.NoError(t, err)
	return video
}

func request(method, path, headers, body string) string {
	raw := method + " " + path + " HTTP/1.1\r\nHost: reel\r\n" + headers
	if body != "" {
		raw += "Content-Length: " + itoa(len(body)) + "\r\n"
	}
	return raw + "\r\n" + body
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register("alice", "password123")
	require.NoError(t, err)

	res := test.Do(t, f.srv, request("POST", "/api/auth/login", "", `{"username":"alice","password":"password123"}`))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"username":"alice"}`, test.Body(t, res))

	setCookie := res.Header.Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(setCookie, auth.SessionCookieName+"="))
	assert.Contains(t, setCookie, "HttpOnly")
	assert.Contains(t, setCookie, "SameSite=Lax")
	assert.Contains(t, setCookie, "Path=/")
	assert.Contains(t, setCookie, "Max-Age=86400")
}

func TestLoginErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register("alice", "password123")
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   string
		status int
		error  string
	}{
		{"empty body", "", http.StatusBadRequest, "Missing credentials"},
		{"not json", "username=alice", http.StatusBadRequest, "Invalid payload"},
		{"missing password", `{"username":"alice"}`, http.StatusUnauthorized, "Invalid credentials"},
		{"empty username", `{"username":"","password":"x"}`, http.StatusUnauthorized, "Invalid credentials"},
		{"oversized username", `{"username":"` + strings.Repeat("a", 129) + `","password":"x"}`, http.StatusBadRequest, "Invalid payload"},
		{"wrong password", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown user", `{"username":"bob","password":"password123"}`, http.StatusUnauthorized, "Invalid credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := test.Do(t, f.srv, request("POST", "/api/auth/login", "", tt.body))
			assert.Equal(t, tt.status, res.StatusCode)
			assert.JSONEq(t, `{"error":"`+tt.error+`"}`, test.Body(t, res))
		})
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	res := test.Do(t, f.srv, request("POST", "/api/auth/register", "", `{"username":"carol","password":"password123"}`))
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.JSONEq(t, `{"username":"carol","userId":1}`, test.Body(t, res))

	res = test.Do(t, f.srv, request("POST", "/api/auth/register", "", `{"username":"carol","password":"password123"}`))
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res = test.Do(t, f.srv, request("POST", "/api/auth/register", "", `{"username":"dave","password":"short"}`))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(test.Body(t, res)), &payload))
	assert.Equal(t, "password must be at least 8", payload.Error)
}

func TestMeAndLogout(t *testing.T) {
	f := newFixture(t)
	cookie, user := f.login(t, "alice")

	res := test.Do(t, f.srv, request("GET", "/api/auth/me", "", ""))
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, test.Body(t, res))

	res = test.Do(t, f.srv, request("GET", "/api/auth/me", cookie, ""))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"username":"alice","userId":`+itoa(int(user.ID))+`}`, test.Body(t, res))

	res = test.Do(t, f.srv, request("POST", "/api/auth/logout", cookie, ""))
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	setCookie := res.Header.Get("Set-Cookie")
	assert.Contains(t, setCookie, auth.SessionCookieName+"=deleted")
	assert.Contains(t, setCookie, "Max-Age=0")
	assert.Contains(t, setCookie, "1970")

	res = test.Do(t, f.srv, request("GET", "/api/auth/me", cookie, ""))
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestListVideos(t *testing.T) {
	f := newFixture(t)
	cookie, user := f.login(t, "alice")

	// Written to disk only; the listing has to sync it in.
	test.WriteFile(t, filepath.Join(f.mediaDir, "big_buck-bunny.mp4"), []byte("video"))

	res := test.Do(t, f.srv, request("GET", "/api/videos", cookie, ""))
	require.Equal(t, http.StatusOK, res.StatusCode)

	var list videoListResponse
	require.NoError(t, json.Unmarshal([]byte(test.Body(t, res)), &list))
	require.Len(t, list.Videos, 1)
	video := list.Videos[0]
	assert.Equal(t, "big buck bunny", video.Title)
	assert.Equal(t, "big_buck-bunny.mp4", video.Filename)
	assert.Equal(t, streamURL(video.ID), video.StreamURL)
	assert.Equal(t, "/api/videos/1/thumbnail", video.ThumbnailURL)
	assert.Zero(t, video.ResumeSeconds)

	_, err := f.db.UpdateWatchHistory(user.ID, video.ID, 42.5)
	require.NoError(t, err)

	res = test.Do(t, f.srv, request("GET", "/api/videos", cookie, ""))
	require.NoError(t, json.Unmarshal([]byte(test.Body(t, res)), &list))
	assert.Equal(t, 42.5, list.Videos[0].ResumeSeconds)

	res = test.Do(t, f.srv, request("GET", "/api/videos", "", ""))
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestStreamVideo(t *testing.T) {
	f := newFixture(t)
	cookie, _ := f.login(t, "alice")
	video := f.addVideo(t, "clip.mp4", 1000)
	path := "/api/videos/" + itoa(int(video.ID)) + "/stream"

	t.Run("full file", func(t *testing.T) {
		res := test.Do(t, f.srv, request("GET", path, cookie, ""))
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "bytes", res.Header.Get("Accept-Ranges"))
		assert.Equal(t, ContentTypeMP4, res.Header.Get("Content-Type"))
		assert.Len(t, test.Body(t, res), 1000)
	})

	t.Run("open ended range", func(t *testing.T) {
		res := test.Do(t, f.srv, request("GET", path, cookie+"Range: bytes=900-\r\n", ""))
		assert.Equal(t, http.StatusPartialContent, res.StatusCode)
		assert.Equal(t, "bytes 900-999/1000", res.Header.Get("Content-Range"))
		assert.Equal(t, "bytes", res.Header.Get("Accept-Ranges"))
		body := test.Body(t, res)
		require.Len(t, body, 100)
		assert.Equal(t, byte(900%251), body[0])
	})

	t.Run("suffix range", func(t *testing.T) {
		res := test.Do(t, f.srv, request("GET", path, cookie+"Range: bytes=-10\r\n", ""))
		assert.Equal(t, http.StatusPartialContent, res.StatusCode)
		assert.Equal(t, "bytes 990-999/1000", res.Header.Get("Content-Range"))
	})

	t.Run("unsatisfiable range", func(t *testing.T) {
		res := test.Do(t, f.srv, request("GET", path, cookie+"Range: bytes=1000-\r\n", ""))
		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, res.StatusCode)
		assert.Equal(t, "bytes */1000", res.Header.Get("Content-Range"))
		assert.JSONEq(t, `{"error":"Invalid range"}`, test.Body(t, res))
	})

	t.Run("unknown video with range", func(t *testing.T) {
		res := test.Do(t, f.srv, request("GET", "/api/videos/999/stream", cookie+"Range: bytes=0-0\r\n", ""))
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		assert.JSONEq(t, `{"error":"Video not found"}`, test.Body(t, res))
	})

	t.Run("invalid id", func(t *testing.T) {
		res := test.Do(t, f.srv, request("GET", "/api/videos/abc/stream", cookie, ""))
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.JSONEq(t, `{"error":"Invalid video id"}`, test.Body(t, res))
	})

	t.Run("file removed from disk", func(t *testing.T) {
		gone := f.addVideo(t, "gone.mp4", 10)
		require.NoError(t, os.Remove(filepath.Join(f.mediaDir, "gone.mp4")))

		res := test.Do(t, f.srv, request("GET", "/api/videos/"+itoa(int(gone.ID))+"/stream", cookie, ""))
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("anonymous", func(t *testing.T) {
		res := test.Do(t, f.srv, request("GET", path, "", ""))
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})
}

func TestThumbnail(t *testing.T) {
	f := newFixture(t)
	cookie, _ := f.login(t, "alice")
	video := f.addVideo(t, "clip.mp4", 10)
	path := "/api/videos/" + itoa(int(video.ID)) + "/thumbnail"

	res := test.Do(t, f.srv, request("GET", path, cookie, ""))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, ContentTypeJPEG, res.Header.Get("Content-Type"))
	assert.Equal(t, "jpeg", test.Body(t, res))

	// Cached now, so a failing generator is never consulted.
	f.thumbs.WithRunner(func(context.Context, string, ...string) error { return errors.New("boom") })
	res = test.Do(t, f.srv, request("GET", path, cookie, ""))
	assert.Equal(t, http.StatusOK, res.StatusCode)

	other := f.addVideo(t, "other.mp4", 10)
	f.thumbs.WithRetries(0)
	res = test.Do(t, f.srv, request("GET", "/api/videos/"+itoa(int(other.ID))+"/thumbnail", cookie, ""))
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.JSONEq(t, `{"error":"Thumbnail error"}`, test.Body(t, res))
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	cookie, _ := f.login(t, "alice")
	video := f.addVideo(t, "first_clip.mp4", 10)
	path := "/api/history/" + itoa(int(video.ID))

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		error  string
	}{
		{"invalid id", "/api/history/0", `{"position":1}`, http.StatusBadRequest, "Invalid video id"},
		{"unknown video", "/api/history/77", `{"position":1}`, http.StatusNotFound, "Video not found"},
		{"missing payload", path, "", http.StatusBadRequest, "Missing payload"},
		{"missing position", path, `{}`, http.StatusBadRequest, "Invalid position"},
		{"negative position", path, `{"position":-1}`, http.StatusBadRequest, "Invalid position"},
		{"wrong type", path, `{"position":"ten"}`, http.StatusBadRequest, "Invalid position"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := test.Do(t, f.srv, request("POST", tt.path, cookie, tt.body))
			assert.Equal(t, tt.status, res.StatusCode)
			assert.JSONEq(t, `{"error":"`+tt.error+`"}`, test.Body(t, res))
		})
	}

	res := test.Do(t, f.srv, request("POST", path, cookie, `{"position":12.25}`))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, test.Body(t, res))

	res = test.Do(t, f.srv, request("GET", "/api/history", cookie, ""))
	require.Equal(t, http.StatusOK, res.StatusCode)

	var history historyResponse
	require.NoError(t, json.Unmarshal([]byte(test.Body(t, res)), &history))
	require.Len(t, history.History, 1)
	entry := history.History[0]
	assert.Equal(t, video.ID, entry.VideoID)
	assert.Equal(t, 12.25, entry.Position)
	assert.Equal(t, "first clip", entry.Title)
	assert.Equal(t, streamURL(video.ID), entry.StreamURL)

	updatedAt, err := time.Parse(TimestampLayout, entry.UpdatedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), updatedAt, time.Minute)
}

func TestStaticFallback(t *testing.T) {
	f := newFixture(t)
	test.WriteFile(t, filepath.Join(f.staticDir, "index.html"), []byte("<html></html>"))
	test.WriteFile(t, filepath.Join(f.staticDir, "css", "app.CSS"), []byte("body{}"))
	require.NoError(t, os.MkdirAll(filepath.Join(f.staticDir, "img"), 0o755))

	res := test.Do(t, f.srv, request("GET", "/", "", ""))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, "<html></html>", test.Body(t, res))

	res = test.Do(t, f.srv, request("GET", "/css/app.CSS", "", ""))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/css; charset=utf-8", res.Header.Get("Content-Type"))

	res = test.Do(t, f.srv, request("GET", "/../secret", "", ""))
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.JSONEq(t, `{"error":"Forbidden"}`, test.Body(t, res))

	for _, path := range []string{"/missing.js", "/img"} {
		res = test.Do(t, f.srv, request("GET", path, "", ""))
		assert.Equal(t, http.StatusNotFound, res.StatusCode, path)
		assert.JSONEq(t, `{"error":"Not Found"}`, test.Body(t, res))
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	f := newFixture(t)

	res := test.Do(t, f.srv, request("GET", "/api/nope", "", ""))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.JSONEq(t, `{"error":"Not Found"}`, test.Body(t, res))

	// Method mismatch falls through to 404 as well.
	res = test.Do(t, f.srv, request("DELETE", "/api/videos", "", ""))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestMimeType(t *testing.T) {
	cases := map[string]string{
		"index.HTML":  "text/html; charset=utf-8",
		"app.js":      "application/javascript",
		"logo.svg":    "image/svg+xml",
		"photo.jpeg":  "image/jpeg",
		"favicon.ico": "image/x-icon",
		"movie.mp4":   "video/mp4",
		"archive":     http.ContentTypeOctetStream,
		"data.bin":    http.ContentTypeOctetStream,
	}
	for name, want := range cases {
		assert.Equal(t, want, MimeType(name), name)
	}
}
