package api

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/freekieb7/reel/database"
	"github.com/freekieb7/reel/http"
)

// How long a listing waits for the library to catch up with the disk.
const listSyncTimeout = 5 * time.Second

type videoResponse struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Filename      string  `json:"filename"`
	Description   string  `json:"description"`
	Duration      int     `json:"duration"`
	ThumbnailURL  string  `json:"thumbnailUrl"`
	StreamURL     string  `json:"streamUrl"`
	ResumeSeconds float64 `json:"resumeSeconds"`
}

type videoListResponse struct {
	Videos []videoResponse `json:"videos"`
}

// ListVideos syncs the library and lists every video with the caller's resume
// position. A failed sync still lists what is stored.
func (h *Handlers) ListVideos(ctx *http.RequestCtx) {
	if h.resync != nil {
		syncCtx, cancel := context.WithTimeout(ctx.Context(), listSyncTimeout)
		err := h.resync.SyncNow(syncCtx)
		cancel()
		if err != nil {
			ctx.Logger.Warn("library sync before listing failed", slog.String("request_id", ctx.ID), slog.Any("error", err))
		}
	}

	resume := make(map[int64]float64)
	for _, entry := range h.db.ListWatchHistory(ctx.UserID) {
		resume[entry.VideoID] = entry.PositionSeconds
	}

	videos := h.db.ListVideos()
	res := videoListResponse{Videos: make([]videoResponse, 0, len(videos))}
	for _, video := range videos {
		res.Videos = append(res.Videos, videoResponse{
			ID:            video.ID,
			Title:         video.Title,
			Filename:      video.Filename,
			Description:   video.Description,
			Duration:      video.DurationSeconds,
			ThumbnailURL:  thumbnailURL(video.ID),
			StreamURL:     streamURL(video.ID),
			ResumeSeconds: resume[video.ID],
		})
	}

	_ = ctx.SendJSON(http.StatusOK, res)
}

// StreamVideo serves the video file, honouring a single byte range.
func (h *Handlers) StreamVideo(ctx *http.RequestCtx) {
	video, ok := h.videoID(ctx)
	if !ok {
		return
	}

	path, size, ok := h.videoFile(ctx, video)
	if !ok {
		return
	}

	acceptRanges := http.Header{Name: "Accept-Ranges", Value: "bytes"}

	rangeHeader, found := ctx.Request.HeaderValue("Range")
	if !found {
		_ = ctx.SendFile(http.StatusOK, ContentTypeMP4,
			http.FileBody{Path: path, Length: size, ZeroCopy: true},
			acceptRanges,
		)
		return
	}

	byteRange, err := http.ParseRange(rangeHeader, size)
	if err != nil {
		ctx.Logger.Debug("range rejected", slog.String("request_id", ctx.ID), slog.Any("error", err))
		_ = ctx.Send(&http.Response{
			Status:      http.StatusRequestedRangeNotSatisfiable,
			ContentType: http.ContentTypeJSON,
			Body:        []byte(`{"error":"Invalid range"}`),
			Headers:     []http.Header{{Name: "Content-Range", Value: "bytes */" + strconv.FormatInt(size, 10)}},
		})
		return
	}

	_ = ctx.SendFile(http.StatusPartialContent, ContentTypeMP4,
		http.FileBody{Path: path, Offset: byteRange.Start, Length: byteRange.Length(), ZeroCopy: true},
		acceptRanges,
		http.Header{Name: "Content-Range", Value: byteRange.ContentRange(size)},
	)
}

func (h *Handlers) Thumbnail(ctx *http.RequestCtx) {
	video, ok := h.videoID(ctx)
	if !ok {
		return
	}

	videoPath, _, ok := h.videoFile(ctx, video)
	if !ok {
		return
	}

	thumbPath, err := h.thumbs.Ensure(ctx.Context(), video, videoPath)
	if err != nil {
		ctx.Logger.Error("thumbnail failed",
			slog.String("request_id", ctx.ID),
			slog.Int64("video_id", video.ID),
			slog.Any("error", err),
		)
		_ = ctx.SendJSONError(http.StatusInternalServerError, "Thumbnail error")
		return
	}

	_ = ctx.SendFile(http.StatusOK, ContentTypeJPEG, http.FileBody{Path: thumbPath})
}

// videoFile locates the file behind video, answering 404 when it is gone.
func (h *Handlers) videoFile(ctx *http.RequestCtx, video database.Video) (string, int64, bool) {
	path, err := h.library.Path(video)
	if err != nil {
		_ = ctx.SendJSONError(http.StatusNotFound, "Video not found")
		return "", 0, false
	}

	info, err := h.fs.FileMetaData(path)
	if err != nil || !info.Mode().IsRegular() {
		_ = ctx.SendJSONError(http.StatusNotFound, "Video not found")
		return "", 0, false
	}
	return path, info.Size(), true
}
