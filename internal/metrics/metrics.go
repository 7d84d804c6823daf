package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Fetcher metrics
	FetchRunsTotal   map[string]int64 // source -> runs
	FetchErrorsTotal map[string]int64 // source -> failed runs
	RowsUpserted     map[string]int64 // source -> rows written
	RowsSkipped      map[string]int64 // source -> rows skipped (unknown user, bad record)

	// Report cache metrics
	CacheHitsTotal   int64
	CacheMissesTotal int64

	// Aggregation metrics
	AggregationRunsTotal   int64
	AggregationErrorsTotal int64
	lastAggregationTime    time.Duration

	// HTTP metrics
	httpRequestsTotal map[string]map[int]int64 // endpoint -> status -> count

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			FetchRunsTotal:    make(map[string]int64),
			FetchErrorsTotal:  make(map[string]int64),
			RowsUpserted:      make(map[string]int64),
			RowsSkipped:       make(map[string]int64),
			httpRequestsTotal: make(map[string]map[int]int64),
			startTime:         time.Now(),
		}
	})
	return instance
}

// RecordFetchRun increments the run counter for a fetch source
func (m *Metrics) RecordFetchRun(source string) {
	m.mu.Lock()
	m.FetchRunsTotal[source]++
	m.mu.Unlock()
}

// RecordFetchError increments the error counter for a fetch source
func (m *Metrics) RecordFetchError(source string) {
	m.mu.Lock()
	m.FetchErrorsTotal[source]++
	m.mu.Unlock()
}

// RecordRowUpserted increments the upserted-row counter for a fetch source
func (m *Metrics) RecordRowUpserted(source string) {
	m.mu.Lock()
	m.RowsUpserted[source]++
	m.mu.Unlock()
}

// RecordRowSkipped increments the skipped-row counter for a fetch source
func (m *Metrics) RecordRowSkipped(source string) {
	m.mu.Lock()
	m.RowsSkipped[source]++
	m.mu.Unlock()
}

// RecordCacheHit increments the report cache hit counter
func (m *Metrics) RecordCacheHit() {
	m.mu.Lock()
	m.CacheHitsTotal++
	m.mu.Unlock()
}

// RecordCacheMiss increments the report cache miss counter
func (m *Metrics) RecordCacheMiss() {
	m.mu.Lock()
	m.CacheMissesTotal++
	m.mu.Unlock()
}

// RecordAggregationRun records a completed average-rep computation
func (m *Metrics) RecordAggregationRun(duration time.Duration) {
	m.mu.Lock()
	m.AggregationRunsTotal++
	m.lastAggregationTime = duration
	m.mu.Unlock()
}

// RecordAggregationError increments the aggregation error counter
func (m *Metrics) RecordAggregationError() {
	m.mu.Lock()
	m.AggregationErrorsTotal++
	m.mu.Unlock()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Helper to write metric
		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		// System metrics
		write("repboard_uptime_seconds", time.Since(m.startTime).Seconds())

		// Fetcher metrics
		for source, count := range m.FetchRunsTotal {
			write("repboard_fetch_runs_total", count, "source", source)
		}
		for source, count := range m.FetchErrorsTotal {
			write("repboard_fetch_errors_total", count, "source", source)
		}
		for source, count := range m.RowsUpserted {
			write("repboard_rows_upserted_total", count, "source", source)
		}
		for source, count := range m.RowsSkipped {
			write("repboard_rows_skipped_total", count, "source", source)
		}

		// Report cache metrics
		write("repboard_cache_hits_total", m.CacheHitsTotal)
		write("repboard_cache_misses_total", m.CacheMissesTotal)

		// Aggregation metrics
		write("repboard_aggregation_runs_total", m.AggregationRunsTotal)
		write("repboard_aggregation_errors_total", m.AggregationErrorsTotal)
		write("repboard_aggregation_duration_seconds", m.lastAggregationTime.Seconds())

		// HTTP metrics
		for endpoint, statuses := range m.httpRequestsTotal {
			for status, count := range statuses {
				write("repboard_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
