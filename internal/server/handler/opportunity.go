package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/crossodds/internal/domain"
)

// OpportunityReader is the read side of the opportunity store.
type OpportunityReader interface {
	GetByID(ctx context.Context, id string) (domain.Alert, error)
	ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Alert, error)
}

// OpportunityHandler serves stored opportunities.
type OpportunityHandler struct {
	store  OpportunityReader
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(store OpportunityReader, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{store: store, logger: logger}
}

type listOpportunitiesResponse struct {
	Opportunities []domain.Alert `json:"opportunities"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
}

// List returns the most recent opportunities, newest first.
// GET /api/opportunities?kind=arbitrage&since=2026-05-01T00:00:00Z&limit=50&offset=0
func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOpts(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := h.store.ListRecent(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}

	writeJSON(w, http.StatusOK, listOpportunitiesResponse{
		Opportunities: alerts,
		Limit:         opts.Limit,
		Offset:        opts.Offset,
	})
}

// Get returns one opportunity with its allocation.
// GET /api/opportunities/{id}
func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing opportunity id")
		return
	}

	alert, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "opportunity not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get opportunity failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get opportunity")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}
