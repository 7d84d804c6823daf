package scheduler

import (
	"context"
	"time"

	"github.com/dmeyerson/repboard/internal/cache"
	"github.com/dmeyerson/repboard/internal/notify"
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CallFetcher pulls the daily call report into the store.
type CallFetcher interface {
	FetchCallReports(ctx context.Context) (string, error)
}

// EmailFetcher pulls the daily mailbox counts into the store.
type EmailFetcher interface {
	FetchUserEmailStats(ctx context.Context) ([]types.EmailFetchResult, error)
}

// LeadSyncer syncs the B2B lead source into the store.
type LeadSyncer interface {
	SyncLeads(ctx context.Context) (int, error)
}

// Aggregator recomputes the average-rep row for a date.
type Aggregator interface {
	CalculateAverageRepStats(date string) error
}

// Scheduler periodically runs the three fetchers and the aggregation. A
// failing step is logged and the cycle continues; the aggregation always
// runs so the average-rep row reflects whatever data did land. Cached
// reports for each refreshed source are dropped before clients are
// notified, so a dashboard re-querying on the broadcast never sees the
// pre-cycle payload.
type Scheduler struct {
	calls    CallFetcher
	email    EmailFetcher
	leads    LeadSyncer
	agg      Aggregator
	cache    *cache.ReportCache
	hub      *notify.Hub
	interval time.Duration
	logger   zerolog.Logger
}

// NewScheduler creates a new Scheduler
func NewScheduler(calls CallFetcher, email EmailFetcher, leads LeadSyncer, agg Aggregator, reportCache *cache.ReportCache, hub *notify.Hub, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		calls:    calls,
		email:    email,
		leads:    leads,
		agg:      agg,
		cache:    reportCache,
		hub:      hub,
		interval: interval,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start runs one fetch cycle immediately, then one per interval until the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	s.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return

		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle runs all fetchers and the aggregation once.
func (s *Scheduler) RunCycle(ctx context.Context) {
	runID := uuid.New().String()
	started := time.Now()
	logger := s.logger.With().Str("run_id", runID).Logger()

	logger.Info().Msg("fetch cycle started")

	var updated []string

	if s.calls != nil {
		if msg, err := s.calls.FetchCallReports(ctx); err != nil {
			logger.Error().Err(err).Msg("call report fetch failed")
		} else {
			logger.Info().Str("result", msg).Msg("call report fetch finished")
			updated = append(updated, "calls")
		}
	}

	if s.email != nil {
		if results, err := s.email.FetchUserEmailStats(ctx); err != nil {
			logger.Error().Err(err).Msg("email stats fetch failed")
		} else {
			logger.Info().Int("users", len(results)).Msg("email stats fetch finished")
			updated = append(updated, "email")
		}
	}

	if s.leads != nil {
		if written, err := s.leads.SyncLeads(ctx); err != nil {
			logger.Error().Err(err).Msg("b2b lead sync failed")
		} else {
			logger.Info().Int("rows", written).Msg("b2b lead sync finished")
			updated = append(updated, "b2b")
		}
	}

	today := types.DateKey(time.Now().UTC())
	if err := s.agg.CalculateAverageRepStats(today); err != nil {
		logger.Error().Err(err).Str("date", today).Msg("average rep aggregation failed")
	}

	if len(updated) > 0 {
		if s.cache != nil {
			for _, source := range updated {
				s.cache.Invalidate(source)
			}
		}
		s.hub.BroadcastStatsUpdated(updated...)
	}

	logger.Info().
		Dur("duration", time.Since(started)).
		Strs("updated", updated).
		Msg("fetch cycle finished")
}
