package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/services"
)

// FileRouter serves uploaded objects under /files/*.
func FileRouter(r chi.Router, media *services.MediaService) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		serveFile(w, r, media)
	})
}

func serveFile(w http.ResponseWriter, r *http.Request, media *services.MediaService) {
	key := chi.URLParam(r, "*")
	body, info, err := media.Open(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err, "file", "open file")
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.WarnContext(r.Context(), "stream file", "key", key, "err", err)
	}
}
