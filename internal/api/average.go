package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmeyerson/repboard/internal/aggregator"
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/rs/zerolog"
)

// AverageHandler exposes the average-rep aggregation endpoints.
type AverageHandler struct {
	agg    *aggregator.Service
	logger zerolog.Logger
}

// NewAverageHandler creates a new AverageHandler
func NewAverageHandler(agg *aggregator.Service, logger zerolog.Logger) *AverageHandler {
	return &AverageHandler{
		agg:    agg,
		logger: logger.With().Str("component", "average_api").Logger(),
	}
}

// HandleCalculate handles POST /api/average/calculate. An optional JSON
// body {"date": "YYYY-MM-DD"} selects the day; default is today.
func (h *AverageHandler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	date := types.DateKey(time.Now().UTC())

	if r.Body != nil {
		var body struct {
			Date string `json:"date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Date != "" {
			if _, err := time.Parse(types.DateFormat, body.Date); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
				return
			}
			date = body.Date
		}
	}

	if err := h.agg.CalculateAverageRepStats(date); err != nil {
		h.logger.Error().Err(err).Str("date", date).Msg("average calculation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to calculate average rep stats"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "date": date})
}

// HandleRecalculate handles POST /api/average/recalculate. Today's row is
// deleted, recomputed and the report cache is flushed.
func (h *AverageHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	if err := h.agg.RecalculateTodaysAverages(); err != nil {
		h.logger.Error().Err(err).Msg("forced recalculation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to recalculate average rep stats"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
