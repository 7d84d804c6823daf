package aggregator

import (
	"time"

	"github.com/dmeyerson/repboard/internal/cache"
	"github.com/dmeyerson/repboard/internal/metrics"
	"github.com/dmeyerson/repboard/internal/storage"
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/rs/zerolog"
)

// Service computes the average-rep rows and assembles rep-vs-average
// comparison payloads.
type Service struct {
	store  storage.Store
	cache  *cache.ReportCache
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new aggregation Service
func NewService(store storage.Store, reportCache *cache.ReportCache, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  reportCache,
		logger: logger.With().Str("component", "aggregator").Logger(),
		now:    time.Now,
	}
}

// CalculateAverageRepStats computes the cross-rep mean of every tracked
// metric for one day and upserts the average_rep row. Each mean is taken
// over the reps that reported data that day; a domain with no rows
// contributes zeros, not an error.
func (s *Service) CalculateAverageRepStats(date string) error {
	started := time.Now()
	m := metrics.Get()

	avg, err := s.computeDailyAverage(date)
	if err != nil {
		m.RecordAggregationError()
		s.logger.Error().Err(err).Str("date", date).Msg("failed to compute average rep stats")
		return err
	}

	if err := s.store.UpsertAverageRep(*avg); err != nil {
		m.RecordAggregationError()
		s.logger.Error().Err(err).Str("date", date).Msg("failed to store average rep stats")
		return err
	}

	m.RecordAggregationRun(time.Since(started))
	s.logger.Info().Str("date", date).Msg("average rep stats updated")
	return nil
}

// RecalculateTodaysAverages forces a fresh computation for the current
// date: today's average_rep row is deleted, recomputed, and any cached
// report derived from it is invalidated so callers never see the stale
// value inside the TTL window.
func (s *Service) RecalculateTodaysAverages() error {
	today := types.DateKey(s.now())

	if err := s.store.DeleteAverageRep(today); err != nil {
		s.logger.Error().Err(err).Str("date", today).Msg("failed to delete average rep row")
		return err
	}

	if err := s.CalculateAverageRepStats(today); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Invalidate("")
	}
	return nil
}

func (s *Service) computeDailyAverage(date string) (*types.AverageRep, error) {
	avg := &types.AverageRep{ReportDate: date}

	callRows, err := s.store.GetCallStatsByDate(date)
	if err != nil {
		return nil, err
	}
	if len(callRows) > 0 {
		var callsTime, callVolume float64
		for _, row := range callRows {
			callsTime += float64(row.TotalDuration)
			callVolume += float64(row.Volume)
		}
		n := float64(len(callRows))
		avg.CallsTime = callsTime / n
		avg.CallVolume = callVolume / n
	}

	emailRows, err := s.store.GetEmailStatsByDate(date)
	if err != nil {
		return nil, err
	}
	if len(emailRows) > 0 {
		var sent, received float64
		for _, row := range emailRows {
			sent += float64(row.Outbound)
			received += float64(row.Inbound)
		}
		n := float64(len(emailRows))
		avg.EmailsSent = sent / n
		avg.EmailsReceived = received / n
	}

	b2bRows, err := s.store.GetB2BStatsByDate(date)
	if err != nil {
		return nil, err
	}
	if len(b2bRows) > 0 {
		var cards, flyers, emails float64
		for _, row := range b2bRows {
			cards += float64(row.BusinessCards)
			flyers += float64(row.Flyers)
			emails += float64(row.Emails)
		}
		n := float64(len(b2bRows))
		avg.BusinessCards = cards / n
		avg.Flyers = flyers / n
		avg.B2BEmails = emails / n
	}

	return avg, nil
}
