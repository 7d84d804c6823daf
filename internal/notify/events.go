package notify

import (
	"encoding/json"
	"time"
)

// StatsUpdated is pushed to dashboard clients whenever a fetch cycle or a
// forced recomputation finished, so open dashboards can re-query.
type StatsUpdated struct {
	Type      string   `json:"type"`
	Sources   []string `json:"sources"`
	Timestamp string   `json:"timestamp"`
}

// BroadcastStatsUpdated marshals and broadcasts a stats_updated event for
// the given sources. A nil hub is a no-op so callers never need to guard.
func (h *Hub) BroadcastStatsUpdated(sources ...string) {
	if h == nil {
		return
	}

	event := StatsUpdated{
		Type:      "stats_updated",
		Sources:   sources,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal stats_updated event")
		return
	}
	h.Broadcast(data)
}
