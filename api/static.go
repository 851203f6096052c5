package api

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/freekieb7/reel/filesystem"
	"github.com/freekieb7/reel/http"
)

const indexFile = "index.html"

var mimeTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".mp4":  "video/mp4",
}

// MimeType picks a content type from the extension of name.
func MimeType(name string) string {
	if mime, found := mimeTypes[strings.ToLower(filepath.Ext(name))]; found {
		return mime
	}
	return http.ContentTypeOctetStream
}

// Static serves the files under root for every method. "/" serves index.html
// and any path containing ".." is refused.
func Static(fs filesystem.Filesystem, root string) http.Handler {
	return func(ctx *http.RequestCtx) {
		requestPath := ctx.Request.Path
		if requestPath == "" {
			_ = ctx.SendJSONError(http.StatusNotFound, "Not Found")
			return
		}
		if strings.Contains(requestPath, "..") {
			_ = ctx.SendJSONError(http.StatusForbidden, "Forbidden")
			return
		}
		if requestPath == "/" {
			requestPath = indexFile
		}

		path, err := filesystem.SafeJoin(root, requestPath)
		if errors.Is(err, filesystem.ErrInvalidPath) {
			_ = ctx.SendJSONError(http.StatusNotFound, "Not Found")
			return
		}

		isFile, err := fs.IsFile(path)
		if err != nil || !isFile {
			_ = ctx.SendJSONError(http.StatusNotFound, "Not Found")
			return
		}

		_ = ctx.SendFile(http.StatusOK, MimeType(path), http.FileBody{Path: path, ZeroCopy: true})
	}
}
