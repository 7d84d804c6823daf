package api

import (
	"net/http"
	"time"

	"github.com/dmeyerson/repboard/internal/cache"
	"github.com/dmeyerson/repboard/internal/notify"
	"github.com/dmeyerson/repboard/internal/scheduler"
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/rs/zerolog"
)

// FetchResult is the payload of the manual fetch endpoints. Upstream
// failures are reported as success=false with a message rather than a 5xx,
// so the dashboard can show them inline.
type FetchResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Rows    int    `json:"rows,omitempty"`
}

// FetchHandler exposes the manual fetch triggers. Each trigger runs one
// fetcher, recomputes today's average row, drops the cached reports for
// that source and notifies connected dashboards.
type FetchHandler struct {
	calls  scheduler.CallFetcher
	email  scheduler.EmailFetcher
	leads  scheduler.LeadSyncer
	agg    scheduler.Aggregator
	cache  *cache.ReportCache
	hub    *notify.Hub
	logger zerolog.Logger
}

// NewFetchHandler creates a new FetchHandler
func NewFetchHandler(calls scheduler.CallFetcher, email scheduler.EmailFetcher, leads scheduler.LeadSyncer, agg scheduler.Aggregator, reportCache *cache.ReportCache, hub *notify.Hub, logger zerolog.Logger) *FetchHandler {
	return &FetchHandler{
		calls:  calls,
		email:  email,
		leads:  leads,
		agg:    agg,
		cache:  reportCache,
		hub:    hub,
		logger: logger.With().Str("component", "fetch_api").Logger(),
	}
}

// HandleFetchCalls handles POST /api/fetch/calls
func (h *FetchHandler) HandleFetchCalls(w http.ResponseWriter, r *http.Request) {
	msg, err := h.calls.FetchCallReports(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("manual call fetch failed")
		writeJSON(w, http.StatusOK, FetchResult{Success: false, Message: err.Error()})
		return
	}

	h.afterFetch("calls")
	writeJSON(w, http.StatusOK, FetchResult{Success: true, Message: msg})
}

// HandleFetchEmail handles POST /api/fetch/email. On success the
// per-user count summaries are returned directly.
func (h *FetchHandler) HandleFetchEmail(w http.ResponseWriter, r *http.Request) {
	results, err := h.email.FetchUserEmailStats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("manual email fetch failed")
		writeJSON(w, http.StatusOK, FetchResult{Success: false, Message: err.Error()})
		return
	}

	h.afterFetch("email")
	writeJSON(w, http.StatusOK, results)
}

// HandleFetchB2B handles POST /api/fetch/b2b
func (h *FetchHandler) HandleFetchB2B(w http.ResponseWriter, r *http.Request) {
	written, err := h.leads.SyncLeads(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("manual b2b sync failed")
		writeJSON(w, http.StatusOK, FetchResult{Success: false, Message: err.Error()})
		return
	}

	h.afterFetch("b2b")
	writeJSON(w, http.StatusOK, FetchResult{
		Success: true,
		Message: "B2B leads synced.",
		Rows:    written,
	})
}

// afterFetch recomputes today's average row, invalidates the cached
// reports for the source and notifies connected dashboards.
func (h *FetchHandler) afterFetch(source string) {
	today := types.DateKey(time.Now().UTC())
	if err := h.agg.CalculateAverageRepStats(today); err != nil {
		h.logger.Error().Err(err).Str("date", today).Msg("post-fetch aggregation failed")
	}

	if h.cache != nil {
		h.cache.Invalidate(source)
	}
	h.hub.BroadcastStatsUpdated(source)
}
