package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// ArchiveHandler lists and downloads archived opportunity files.
type ArchiveHandler struct {
	reader domain.BlobReader
	prefix string
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler rooted at prefix.
func NewArchiveHandler(reader domain.BlobReader, prefix string, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{reader: reader, prefix: strings.Trim(prefix, "/"), logger: logger}
}

// List returns the archive objects, optionally narrowed to a day or month.
// GET /api/archive?date=2026/05
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	prefix := h.prefix + "/"
	if d := strings.Trim(r.URL.Query().Get("date"), "/"); d != "" {
		if strings.Contains(d, "..") {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		prefix += d + "/"
	}

	objects, err := h.reader.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archive failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list archive")
		return
	}
	if objects == nil {
		objects = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": objects})
}

// Download streams one archive file as JSON Lines.
// GET /api/archive/{path...}
func (h *ArchiveHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := path.Clean("/" + r.PathValue("path"))[1:]
	if key == "" || !strings.HasPrefix(key, h.prefix+"/") {
		writeError(w, http.StatusBadRequest, "invalid archive path")
		return
	}

	body, err := h.reader.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive file not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get archive failed",
			slog.String("path", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read archive")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: archive stream interrupted", slog.String("error", err.Error()))
	}
}
