package api

import (
	"log/slog"

	"github.com/freekieb7/reel/http"
)

type historyResponse struct {
	History []historyEntryResponse `json:"history"`
}

type historyEntryResponse struct {
	VideoID      int64   `json:"videoId"`
	Position     float64 `json:"position"`
	UpdatedAt    string  `json:"updatedAt"`
	Title        string  `json:"title"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	StreamURL    string  `json:"streamUrl"`
}

type historyPayload struct {
	Position *float64 `json:"position" validate:"required,gte=0"`
}

// ListHistory lists the caller's watch history, most recently updated first.
func (h *Handlers) ListHistory(ctx *http.RequestCtx) {
	entries := h.db.ListWatchHistory(ctx.UserID)

	res := historyResponse{History: make([]historyEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		video, err := h.db.VideoByID(entry.VideoID)
		if err != nil {
			continue
		}
		res.History = append(res.History, historyEntryResponse{
			VideoID:      entry.VideoID,
			Position:     entry.PositionSeconds,
			UpdatedAt:    entry.UpdatedAt.UTC().Format(TimestampLayout),
			Title:        video.Title,
			ThumbnailURL: thumbnailURL(entry.VideoID),
			StreamURL:    streamURL(entry.VideoID),
		})
	}

	_ = ctx.SendJSON(http.StatusOK, res)
}

func (h *Handlers) UpdateHistory(ctx *http.RequestCtx) {
	video, ok := h.videoID(ctx)
	if !ok {
		return
	}

	if len(ctx.Request.Body) == 0 {
		_ = ctx.SendJSONError(http.StatusBadRequest, "Missing payload")
		return
	}

	var payload historyPayload
	if !h.decode(ctx, &payload, "Invalid position") {
		return
	}

	if _, err := h.db.UpdateWatchHistory(ctx.UserID, video.ID, *payload.Position); err != nil {
		ctx.Logger.Error("updating history failed",
			slog.String("request_id", ctx.ID),
			slog.Int64("video_id", video.ID),
			slog.Any("error", err),
		)
		_ = ctx.SendJSONError(http.StatusInternalServerError, "Failed to update history")
		return
	}

	_ = ctx.SendJSON(http.StatusOK, map[string]string{"status": "ok"})
}
