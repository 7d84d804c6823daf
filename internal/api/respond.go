package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmeyerson/repboard/internal/types"
)

// timeNow is swapped out in tests that pin the current date.
var timeNow = func() time.Time { return time.Now().UTC() }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// dateRangeParams reads the start/end query parameters, defaulting to the
// last seven days ending today.
func dateRangeParams(r *http.Request) (string, string) {
	now := timeNow()
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	if end == "" {
		end = types.DateKey(now)
	}
	if start == "" {
		start = types.DateKey(now.AddDate(0, 0, -6))
	}
	return start, end
}
