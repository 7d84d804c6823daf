package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmeyerson/repboard/internal/config"
	"github.com/dmeyerson/repboard/internal/metrics"
	"github.com/dmeyerson/repboard/internal/storage"
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/rs/zerolog"
)

const sourceB2B = "b2b"

// Timestamp layouts seen in the spreadsheet export.
var sheetTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
}

// SheetsFetcher reads B2B marketing leads from the Google Sheets web app
// and syncs them into per-(rep, day) b2b_statistics counter rows, so the
// aggregation paths never touch the spreadsheet directly.
type SheetsFetcher struct {
	cfg    *config.Config
	store  storage.Store
	client *http.Client
	logger zerolog.Logger

	sheetURL string
}

// NewSheetsFetcher creates a new SheetsFetcher
func NewSheetsFetcher(cfg *config.Config, store storage.Store, logger zerolog.Logger) *SheetsFetcher {
	return &SheetsFetcher{
		cfg:      cfg,
		store:    store,
		client:   &http.Client{Timeout: cfg.SheetTimeout},
		logger:   logger.With().Str("component", "sheets_fetcher").Logger(),
		sheetURL: cfg.SheetURL,
	}
}

type sheetRow struct {
	Timestamp string          `json:"Timestamp"`
	SalesRep  string          `json:"Sales Rep"`
	Material  string          `json:"Promotional Material"`
	Complete  json.RawMessage `json:"Complete"`
}

// FetchLeads fetches lead rows from the web app, optionally filtered by
// sales rep and completion state.
func (f *SheetsFetcher) FetchLeads(ctx context.Context, salesRep, complete string) ([]types.B2BLead, error) {
	params := url.Values{}
	params.Set("key", f.cfg.SheetAPIKey)
	if salesRep != "" {
		params.Set("Sales Rep", salesRep)
	}
	if complete != "" {
		params.Set("Complete", complete)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sheetURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet request failed with status %d", resp.StatusCode)
	}

	var rows []sheetRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode sheet response: %w", err)
	}

	leads := make([]types.B2BLead, 0, len(rows))
	for _, row := range rows {
		ts, err := parseSheetTime(row.Timestamp)
		if err != nil {
			f.logger.Debug().Str("timestamp", row.Timestamp).Msg("unparseable lead timestamp, skipping row")
			continue
		}
		leads = append(leads, types.B2BLead{
			Timestamp: ts,
			SalesRep:  strings.TrimSpace(row.SalesRep),
			Material:  strings.TrimSpace(row.Material),
			Complete:  parseSheetBool(row.Complete),
		})
	}
	return leads, nil
}

// SyncLeads fetches the full lead source and upserts one b2b_statistics
// row per (rep, day). Leads whose rep does not resolve to an application
// user are dropped silently. Returns the number of rows written.
func (f *SheetsFetcher) SyncLeads(ctx context.Context) (int, error) {
	m := metrics.Get()
	m.RecordFetchRun(sourceB2B)

	leads, err := f.FetchLeads(ctx, "", "")
	if err != nil {
		m.RecordFetchError(sourceB2B)
		return 0, err
	}

	users, err := f.store.ListUsers()
	if err != nil {
		m.RecordFetchError(sourceB2B)
		return 0, fmt.Errorf("failed to list users: %w", err)
	}
	byName := make(map[string]types.User, len(users))
	for _, user := range users {
		byName[strings.ToLower(user.DisplayName)] = user
		byName[strings.ToLower(user.Email)] = user
	}

	// Accumulate per (rep, day) before writing, so each row is written once
	counters := make(map[string]*types.B2BStats)
	for _, lead := range leads {
		user, ok := byName[strings.ToLower(lead.SalesRep)]
		if !ok {
			f.logger.Debug().Str("sales_rep", lead.SalesRep).Msg("no application user for lead, skipping")
			m.RecordRowSkipped(sourceB2B)
			continue
		}

		date := types.DateKey(lead.Timestamp)
		key := date + "|" + user.Email
		row, ok := counters[key]
		if !ok {
			row = &types.B2BStats{
				ReportDate: date,
				UserID:     user.Email,
				UserName:   user.DisplayName,
			}
			counters[key] = row
		}

		switch ClassifyMaterial(lead.Material) {
		case types.MetricBusinessCards:
			row.BusinessCards++
		case types.MetricFlyers:
			row.Flyers++
		case types.MetricB2BEmails:
			row.Emails++
		}
	}

	written := 0
	for _, row := range counters {
		if err := f.store.UpsertB2BStats(*row); err != nil {
			f.logger.Error().Err(err).
				Str("user_id", row.UserID).
				Str("date", row.ReportDate).
				Msg("failed to upsert b2b stats row, skipping")
			m.RecordRowSkipped(sourceB2B)
			continue
		}
		m.RecordRowUpserted(sourceB2B)
		written++
	}

	f.logger.Info().
		Int("leads", len(leads)).
		Int("rows", written).
		Msg("b2b leads synced")
	return written, nil
}

// ClassifyMaterial maps the promotional-material free text onto a metric
// name. Unrecognized text yields an empty string.
func ClassifyMaterial(material string) string {
	m := strings.ToLower(material)
	switch {
	case strings.Contains(m, "business card"):
		return types.MetricBusinessCards
	case strings.Contains(m, "flyer"):
		return types.MetricFlyers
	case strings.Contains(m, "email"):
		return types.MetricB2BEmails
	default:
		return ""
	}
}

func parseSheetTime(value string) (time.Time, error) {
	for _, layout := range sheetTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// parseSheetBool accepts the boolean spellings the sheet produces: true,
// "Yes", "TRUE", "y", "1".
func parseSheetBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "true", "y", "1":
			return true
		}
	}
	return false
}
