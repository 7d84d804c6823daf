package reports

import (
	"sort"

	"github.com/dmeyerson/repboard/internal/cache"
	"github.com/dmeyerson/repboard/internal/metrics"
	"github.com/dmeyerson/repboard/internal/storage"
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/rs/zerolog"
)

// NoData is the sentinel user list returned when a query matches nothing
// or names an unknown metric. The presentation layer renders it as an
// empty state instead of a chart.
var NoData = []string{"No Data"}

// CallDataColumns is the fixed column order of the call-data dump.
var CallDataColumns = []string{
	"userId", "userName", "reportDate",
	"inboundVolume", "inboundDuration", "outboundVolume", "outboundDuration",
	"averageDuration", "volume", "totalDuration", "inboundQueueVolume",
}

// CallData is the column-oriented call_statistics dump for a date range.
type CallData struct {
	Columns []string `json:"columns"`
	Values  [][]any  `json:"values"`
}

// EmailStats holds per-user totals for a date range. The metric arrays
// (total, inbound, outbound) are parallel to Users.
type EmailStats struct {
	Users   []string         `json:"users"`
	Metrics map[string][]int `json:"metrics"`
}

// B2BStats holds per-rep counts of one promotional metric for a range.
type B2BStats struct {
	Users   []string       `json:"users"`
	Metrics map[string]int `json:"metrics"`
}

// Service answers the report queries feeding the dashboard charts. Every
// query goes through the injected report cache; the cache key carries the
// full parameter set so distinct ranges never collide.
type Service struct {
	store  storage.Store
	cache  *cache.ReportCache
	logger zerolog.Logger
}

// NewService creates a new report Service
func NewService(store storage.Store, reportCache *cache.ReportCache, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  reportCache,
		logger: logger.With().Str("component", "reports").Logger(),
	}
}

// cached runs compute through the report cache and records hit/miss.
func (s *Service) cached(key string, compute func() (any, error)) (any, error) {
	m := metrics.Get()

	hit := true
	value, err := s.cache.GetOrCompute(key, func() (any, error) {
		hit = false
		return compute()
	})
	if err != nil {
		return nil, err
	}

	if hit {
		m.RecordCacheHit()
	} else {
		m.RecordCacheMiss()
	}
	return value, nil
}

// GetCallData returns the column-oriented call_statistics rows for the
// inclusive date range.
func (s *Service) GetCallData(start, end string) (*CallData, error) {
	key := cache.Key("calls", start, end)
	value, err := s.cached(key, func() (any, error) {
		return s.computeCallData(start, end)
	})
	if err != nil {
		return nil, err
	}
	return value.(*CallData), nil
}

func (s *Service) computeCallData(start, end string) (*CallData, error) {
	days, err := types.DateRange(start, end)
	if err != nil {
		return nil, err
	}

	data := &CallData{Columns: CallDataColumns, Values: [][]any{}}
	for _, day := range days {
		rows, err := s.store.GetCallStatsByDate(day)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			data.Values = append(data.Values, []any{
				row.UserID, row.UserName, row.ReportDate,
				row.InboundVolume, row.InboundDuration, row.OutboundVolume, row.OutboundDuration,
				row.AverageDuration, row.Volume, row.TotalDuration, row.InboundQueueVolume,
			})
		}
	}
	return data, nil
}

// GetEmailStats returns per-user email totals for the inclusive date
// range, with the total/inbound/outbound arrays parallel to the user
// list.
func (s *Service) GetEmailStats(start, end string) (*EmailStats, error) {
	key := cache.Key("email", start, end)
	value, err := s.cached(key, func() (any, error) {
		return s.computeEmailStats(start, end)
	})
	if err != nil {
		return nil, err
	}
	return value.(*EmailStats), nil
}

func (s *Service) computeEmailStats(start, end string) (*EmailStats, error) {
	days, err := types.DateRange(start, end)
	if err != nil {
		return nil, err
	}

	type totals struct {
		name                     string
		total, inbound, outbound int
	}
	perUser := make(map[string]*totals)

	for _, day := range days {
		rows, err := s.store.GetEmailStatsByDate(day)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			t, ok := perUser[row.UserID]
			if !ok {
				name := row.UserName
				if name == "" {
					name = row.UserID
				}
				t = &totals{name: name}
				perUser[row.UserID] = t
			}
			t.inbound += row.Inbound
			t.outbound += row.Outbound
			t.total += row.Total
		}
	}

	if len(perUser) == 0 {
		return &EmailStats{Users: NoData, Metrics: map[string][]int{}}, nil
	}

	userIDs := make([]string, 0, len(perUser))
	for id := range perUser {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool {
		return perUser[userIDs[i]].name < perUser[userIDs[j]].name
	})

	result := &EmailStats{
		Users: make([]string, 0, len(userIDs)),
		Metrics: map[string][]int{
			"total":    make([]int, 0, len(userIDs)),
			"inbound":  make([]int, 0, len(userIDs)),
			"outbound": make([]int, 0, len(userIDs)),
		},
	}
	for _, id := range userIDs {
		t := perUser[id]
		result.Users = append(result.Users, t.name)
		result.Metrics["total"] = append(result.Metrics["total"], t.total)
		result.Metrics["inbound"] = append(result.Metrics["inbound"], t.inbound)
		result.Metrics["outbound"] = append(result.Metrics["outbound"], t.outbound)
	}
	return result, nil
}

// GetB2BStats returns per-rep counts for one promotional metric over the
// inclusive date range. An unrecognized metric name yields the No Data
// sentinel rather than an error.
func (s *Service) GetB2BStats(start, end, metric string) (*B2BStats, error) {
	key := cache.Key("b2b", start, end, metric)
	value, err := s.cached(key, func() (any, error) {
		return s.computeB2BStats(start, end, metric)
	})
	if err != nil {
		return nil, err
	}
	return value.(*B2BStats), nil
}

func (s *Service) computeB2BStats(start, end, metric string) (*B2BStats, error) {
	normalized, ok := normalizeB2BMetric(metric)
	if !ok {
		s.logger.Warn().Str("metric", metric).Msg("unknown b2b metric requested")
		return &B2BStats{Users: NoData, Metrics: map[string]int{}}, nil
	}

	days, err := types.DateRange(start, end)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	names := make(map[string]bool)
	for _, day := range days {
		rows, err := s.store.GetB2BStatsByDate(day)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			name := row.UserName
			if name == "" {
				name = row.UserID
			}
			names[name] = true

			var value int
			switch normalized {
			case types.MetricBusinessCards:
				value = row.BusinessCards
			case types.MetricFlyers:
				value = row.Flyers
			case types.MetricB2BEmails:
				value = row.Emails
			}
			counts[name] += value
		}
	}

	if len(names) == 0 {
		return &B2BStats{Users: NoData, Metrics: map[string]int{}}, nil
	}

	users := make([]string, 0, len(names))
	for name := range names {
		users = append(users, name)
	}
	sort.Strings(users)

	return &B2BStats{Users: users, Metrics: counts}, nil
}

func normalizeB2BMetric(metric string) (string, bool) {
	switch metric {
	case types.MetricBusinessCards, "business cards":
		return types.MetricBusinessCards, true
	case types.MetricFlyers, "flyer":
		return types.MetricFlyers, true
	case types.MetricB2BEmails, "emails", "email":
		return types.MetricB2BEmails, true
	default:
		return "", false
	}
}
