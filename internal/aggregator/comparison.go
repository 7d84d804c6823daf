package aggregator

import (
	"fmt"

	"github.com/dmeyerson/repboard/internal/types"
)

// GetComparisonData assembles the "this rep vs the average rep" payload
// for the inclusive date range start..end. For a single day the persisted
// average_rep row is used, computing it on demand if missing. For a range
// the rep's own rows are summed (raw totals, not averaged) and the
// average side is a fresh cross-rep mean over the raw per-rep-per-day
// rows, never an average of the daily snapshots. Missing metrics default
// to 0; any failure returns an error, never a partial payload.
func (s *Service) GetComparisonData(userID, start, end string) (*types.ComparisonData, error) {
	if start == end {
		return s.singleDayComparison(userID, start)
	}
	return s.rangeComparison(userID, start, end)
}

func (s *Service) singleDayComparison(userID, date string) (*types.ComparisonData, error) {
	avgRow, err := s.store.GetAverageRep(date)
	if err != nil {
		return nil, err
	}
	if avgRow == nil {
		// Compute on demand, then fail only if still absent
		if err := s.CalculateAverageRepStats(date); err != nil {
			return nil, fmt.Errorf("no average rep data available: %w", err)
		}
		avgRow, err = s.store.GetAverageRep(date)
		if err != nil {
			return nil, err
		}
		if avgRow == nil {
			return nil, fmt.Errorf("no average rep data available for %s", date)
		}
	}

	user := types.ZeroMetrics()

	callRow, err := s.store.GetUserCallStats(userID, date)
	if err != nil {
		return nil, err
	}
	if callRow != nil {
		user[types.MetricCallsTime] = float64(callRow.TotalDuration)
		user[types.MetricCallVolume] = float64(callRow.Volume)
	}

	emailRow, err := s.store.GetUserEmailStats(userID, date)
	if err != nil {
		return nil, err
	}
	if emailRow != nil {
		user[types.MetricEmailsSent] = float64(emailRow.Outbound)
		user[types.MetricEmailsReceived] = float64(emailRow.Inbound)
	}

	b2bRow, err := s.store.GetUserB2BStats(userID, date)
	if err != nil {
		return nil, err
	}
	if b2bRow != nil {
		user[types.MetricBusinessCards] = float64(b2bRow.BusinessCards)
		user[types.MetricFlyers] = float64(b2bRow.Flyers)
		user[types.MetricB2BEmails] = float64(b2bRow.Emails)
	}

	return &types.ComparisonData{User: user, Average: avgRow.Metrics()}, nil
}

func (s *Service) rangeComparison(userID, start, end string) (*types.ComparisonData, error) {
	days, err := types.DateRange(start, end)
	if err != nil {
		return nil, err
	}

	user := types.ZeroMetrics()
	totals := types.ZeroMetrics()

	// Distinct reps with at least one row in range, per metric domain
	callReps := make(map[string]bool)
	emailReps := make(map[string]bool)
	b2bReps := make(map[string]bool)

	for _, day := range days {
		callRows, err := s.store.GetCallStatsByDate(day)
		if err != nil {
			return nil, err
		}
		for _, row := range callRows {
			callReps[row.UserID] = true
			totals[types.MetricCallsTime] += float64(row.TotalDuration)
			totals[types.MetricCallVolume] += float64(row.Volume)
			if row.UserID == userID {
				user[types.MetricCallsTime] += float64(row.TotalDuration)
				user[types.MetricCallVolume] += float64(row.Volume)
			}
		}

		emailRows, err := s.store.GetEmailStatsByDate(day)
		if err != nil {
			return nil, err
		}
		for _, row := range emailRows {
			emailReps[row.UserID] = true
			totals[types.MetricEmailsSent] += float64(row.Outbound)
			totals[types.MetricEmailsReceived] += float64(row.Inbound)
			if row.UserID == userID {
				user[types.MetricEmailsSent] += float64(row.Outbound)
				user[types.MetricEmailsReceived] += float64(row.Inbound)
			}
		}

		b2bRows, err := s.store.GetB2BStatsByDate(day)
		if err != nil {
			return nil, err
		}
		for _, row := range b2bRows {
			b2bReps[row.UserID] = true
			totals[types.MetricBusinessCards] += float64(row.BusinessCards)
			totals[types.MetricFlyers] += float64(row.Flyers)
			totals[types.MetricB2BEmails] += float64(row.Emails)
			if row.UserID == userID {
				user[types.MetricBusinessCards] += float64(row.BusinessCards)
				user[types.MetricFlyers] += float64(row.Flyers)
				user[types.MetricB2BEmails] += float64(row.Emails)
			}
		}
	}

	average := types.ZeroMetrics()
	if n := float64(len(callReps)); n > 0 {
		average[types.MetricCallsTime] = totals[types.MetricCallsTime] / n
		average[types.MetricCallVolume] = totals[types.MetricCallVolume] / n
	}
	if n := float64(len(emailReps)); n > 0 {
		average[types.MetricEmailsSent] = totals[types.MetricEmailsSent] / n
		average[types.MetricEmailsReceived] = totals[types.MetricEmailsReceived] / n
	}
	if n := float64(len(b2bReps)); n > 0 {
		average[types.MetricBusinessCards] = totals[types.MetricBusinessCards] / n
		average[types.MetricFlyers] = totals[types.MetricFlyers] / n
		average[types.MetricB2BEmails] = totals[types.MetricB2BEmails] / n
	}

	return &types.ComparisonData{User: user, Average: average}, nil
}
