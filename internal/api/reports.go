package api

import (
	"net/http"

	"github.com/dmeyerson/repboard/internal/reports"
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/rs/zerolog"
)

// ReportsHandler serves the cached report queries backing the dashboard
// charts.
type ReportsHandler struct {
	svc    *reports.Service
	logger zerolog.Logger
}

// NewReportsHandler creates a new ReportsHandler
func NewReportsHandler(svc *reports.Service, logger zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		svc:    svc,
		logger: logger.With().Str("component", "reports_api").Logger(),
	}
}

// HandleCallReport handles GET /api/reports/calls?start=&end=
func (h *ReportsHandler) HandleCallReport(w http.ResponseWriter, r *http.Request) {
	start, end := dateRangeParams(r)

	data, err := h.svc.GetCallData(start, end)
	if err != nil {
		h.logger.Error().Err(err).Str("start", start).Str("end", end).Msg("call report query failed")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleEmailReport handles GET /api/reports/email?start=&end=
func (h *ReportsHandler) HandleEmailReport(w http.ResponseWriter, r *http.Request) {
	start, end := dateRangeParams(r)

	data, err := h.svc.GetEmailStats(start, end)
	if err != nil {
		h.logger.Error().Err(err).Str("start", start).Str("end", end).Msg("email report query failed")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleB2BReport handles GET /api/reports/b2b?start=&end=&metric=
func (h *ReportsHandler) HandleB2BReport(w http.ResponseWriter, r *http.Request) {
	start, end := dateRangeParams(r)
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = types.MetricBusinessCards
	}

	data, err := h.svc.GetB2BStats(start, end, metric)
	if err != nil {
		h.logger.Error().Err(err).Str("start", start).Str("end", end).Msg("b2b report query failed")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, data)
}
