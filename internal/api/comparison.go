package api

import (
	"net/http"

	"github.com/dmeyerson/repboard/internal/aggregator"
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ComparisonHandler serves the rep-vs-average comparison payload.
type ComparisonHandler struct {
	agg    *aggregator.Service
	logger zerolog.Logger
}

// NewComparisonHandler creates a new ComparisonHandler
func NewComparisonHandler(agg *aggregator.Service, logger zerolog.Logger) *ComparisonHandler {
	return &ComparisonHandler{
		agg:    agg,
		logger: logger.With().Str("component", "comparison_api").Logger(),
	}
}

// HandleComparison handles GET /api/comparison/{userId}?start=&end=. With
// no range parameters the comparison covers today only.
func (h *ComparisonHandler) HandleComparison(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user id"})
		return
	}

	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" && end == "" {
		today := types.DateKey(timeNow())
		start, end = today, today
	} else if start == "" || end == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start and end must be given together"})
		return
	}

	data, err := h.agg.GetComparisonData(userID, start, end)
	if err != nil {
		h.logger.Error().Err(err).
			Str("user_id", userID).
			Str("start", start).
			Str("end", end).
			Msg("comparison query failed")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, data)
}
