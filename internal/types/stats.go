package types

import (
	"fmt"
	"time"
)

// DateFormat is the calendar-day key format used across all tables.
// Time-of-day is discarded at the ingest boundary.
const DateFormat = "2006-01-02"

// DateKey formats a time as a report-date key.
func DateKey(t time.Time) string {
	return t.Format(DateFormat)
}

// DateRange expands an inclusive start..end pair into day keys.
func DateRange(start, end string) ([]string, error) {
	s, err := time.Parse(DateFormat, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(DateFormat, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if e.Before(s) {
		return nil, fmt.Errorf("end date %s is before start date %s", end, start)
	}

	var days []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateFormat))
	}
	return days, nil
}

// User is an application user (sales rep) the fetchers resolve against.
type User struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Active      bool   `json:"active"`
}

// CallStats is one rep's call activity for one day, as reported by the
// telephony call-report API. Durations are milliseconds.
type CallStats struct {
	ReportDate         string `json:"reportDate"`
	UserID             string `json:"userId"`
	UserName           string `json:"userName"`
	InboundVolume      int    `json:"inboundVolume"`
	InboundDuration    int64  `json:"inboundDuration"`
	OutboundVolume     int    `json:"outboundVolume"`
	OutboundDuration   int64  `json:"outboundDuration"`
	AverageDuration    int64  `json:"averageDuration"`
	Volume             int    `json:"volume"`
	TotalDuration      int64  `json:"totalDuration"`
	InboundQueueVolume int    `json:"inboundQueueVolume"`
}

// EmailStats is one rep's mailbox activity for one day.
type EmailStats struct {
	ReportDate string `json:"reportDate"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	Inbound    int    `json:"inbound"`
	Outbound   int    `json:"outbound"`
	Total      int    `json:"total"`
}

// B2BStats is one rep's B2B marketing activity for one day, synced from
// the spreadsheet lead source.
type B2BStats struct {
	ReportDate    string `json:"reportDate"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	BusinessCards int    `json:"businessCards"`
	Flyers        int    `json:"flyers"`
	Emails        int    `json:"emails"`
}

// B2BLead is a single raw lead row from the spreadsheet web app.
type B2BLead struct {
	Timestamp time.Time `json:"timestamp"`
	SalesRep  string    `json:"salesRep"`
	Material  string    `json:"material"` // promotional-material free text
	Complete  bool      `json:"complete"`
}

// ProviderTokens holds persisted OAuth tokens for an external provider.
type ProviderTokens struct {
	Provider     string `json:"provider"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// EmailFetchResult is the per-user summary returned by the mailbox fetcher.
type EmailFetchResult struct {
	User       string `json:"user"`
	InboxCount int    `json:"inboxCount"`
	SentCount  int    `json:"sentCount"`
}
