package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// CycleLister lists recent cycle reports.
type CycleLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.CycleReport, error)
}

// CycleHandler serves cycle history.
type CycleHandler struct {
	cycles CycleLister
	logger *slog.Logger
}

// NewCycleHandler creates a CycleHandler.
func NewCycleHandler(cycles CycleLister, logger *slog.Logger) *CycleHandler {
	return &CycleHandler{cycles: cycles, logger: logger}
}

// List returns recent cycle reports, newest first.
// GET /api/cycles?limit=20
func (h *CycleHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.cycles.ListRecent(r.Context(), parseLimit(r, 20, 200))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list cycles failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list cycles")
		return
	}
	if reports == nil {
		reports = []domain.CycleReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": reports})
}
