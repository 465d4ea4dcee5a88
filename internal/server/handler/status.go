package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// LatestCycle returns the most recent cycle report.
type LatestCycle interface {
	Latest(ctx context.Context) (domain.CycleReport, error)
}

// StatusHandler serves the scanner status for the dashboard.
type StatusHandler struct {
	mode      string
	latest    LatestCycle
	startedAt time.Time
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. latest may be nil when no
// status cache is configured.
func NewStatusHandler(mode string, latest LatestCycle, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{mode: mode, latest: latest, startedAt: time.Now().UTC(), logger: logger}
}

// GetStatus responds with the mode, uptime and the last cycle report.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":           h.mode,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}

	if h.latest != nil {
		report, err := h.latest.Latest(r.Context())
		switch {
		case err == nil:
			resp["last_cycle"] = report
		case errors.Is(err, domain.ErrNotFound):
			resp["last_cycle"] = nil
		default:
			h.logger.ErrorContext(r.Context(), "handler: latest cycle failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to read scanner status")
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
