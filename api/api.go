// Package api implements the JSON endpoints of the media server and the static
// file fallback for the web client.
package api

import (
	"log/slog"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/freekieb7/reel/auth"
	"github.com/freekieb7/reel/database"
	"github.com/freekieb7/reel/filesystem"
	"github.com/freekieb7/reel/http"
	"github.com/freekieb7/reel/media"
	"github.com/freekieb7/reel/validation"
)

const (
	ContentTypeMP4  = "video/mp4"
	ContentTypeJPEG = "image/jpeg"

	// Layout of history timestamps in responses.
	TimestampLayout = "2006-01-02 15:04:05"
)

type Handlers struct {
	db        *database.Database
	auth      *auth.Service
	library   *media.Library
	resync    *media.Resyncer
	thumbs    *media.Thumbnailer
	fs        filesystem.Filesystem
	validator *validation.Validator
	logger    *slog.Logger
}

type Dependencies struct {
	Database    *database.Database
	Auth        *auth.Service
	Library     *media.Library
	Resyncer    *media.Resyncer
	Thumbnailer *media.Thumbnailer
	Filesystem  filesystem.Filesystem
	Logger      *slog.Logger
}

func NewHandlers(deps Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		db:        deps.Database,
		auth:      deps.Auth,
		library:   deps.Library,
		resync:    deps.Resyncer,
		thumbs:    deps.Thumbnailer,
		fs:        deps.Filesystem,
		validator: validation.New(),
		logger:    logger,
	}
}

// Routes returns the API route table. Everything except login, register and
// logout requires a session.
func (h *Handlers) Routes() []http.Route {
	routes := []http.Route{
		http.POST("/api/auth/login", h.Login),
		http.POST("/api/auth/register", h.Register),
		http.POST("/api/auth/logout", h.Logout),
	}

	return append(routes, http.Group("/api", []http.Route{
		http.GET("/auth/me", h.Me),
		http.GET("/videos", h.ListVideos),
		http.GET("/videos/:id/stream", h.StreamVideo),
		http.GET("/videos/:id/thumbnail", h.Thumbnail),
		http.GET("/history", h.ListHistory),
		http.POST("/history/:id", h.UpdateHistory),
	}, http.RequireAuth())...)
}

func (h *Handlers) Router() *http.Router {
	return http.NewRouter(h.Routes()...)
}

// decode reads the request body into payload and validates it. It sends the
// error response itself and reports whether the handler may continue.
func (h *Handlers) decode(ctx *http.RequestCtx, payload any, invalid string) bool {
	if err := decodeBody(ctx, payload); err != nil {
		_ = ctx.SendJSONError(http.StatusBadRequest, invalid)
		return false
	}
	if violations := h.validator.Struct(payload); !violations.IsEmpty() {
		ctx.Logger.Debug("payload rejected",
			slog.String("request_id", ctx.ID),
			slog.String("violation", violations.First()),
		)
		_ = ctx.SendJSONError(http.StatusBadRequest, invalid)
		return false
	}
	return true
}

func decodeBody(ctx *http.RequestCtx, payload any) error {
	return json.Unmarshal(ctx.Request.Body, payload)
}

// videoID resolves the ":id" parameter to a stored video, answering 400 or 404
// when it cannot.
func (h *Handlers) videoID(ctx *http.RequestCtx) (database.Video, bool) {
	id, ok := validation.ParsePositiveInt(ctx.Param("id"))
	if !ok {
		_ = ctx.SendJSONError(http.StatusBadRequest, "Invalid video id")
		return database.Video{}, false
	}

	video, err := h.db.VideoByID(id)
	if err != nil {
		_ = ctx.SendJSONError(http.StatusNotFound, "Video not found")
		return database.Video{}, false
	}
	return video, true
}

func streamURL(id int64) string {
	return "/api/videos/" + strconv.FormatInt(id, 10) + "/stream"
}

func thumbnailURL(id int64) string {
	return "/api/videos/" + strconv.FormatInt(id, 10) + "/thumbnail"
}
