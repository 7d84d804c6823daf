package fetcher

import (
	"context"
	"encoding/base64"
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

const sourceCalls = "calls"

// TokenProviderGoTo is the tokens-table key for the call-report API.
const TokenProviderGoTo = "goto"

// GoToFetcher pulls the daily user-activity call report and upserts one
// call_statistics row per rep. Tokens are persisted in the tokens table;
// an expired access token is refreshed once via the refresh-token grant.
type GoToFetcher struct {
	cfg    *config.Config
	store  storage.Store
	client *http.Client
	logger zerolog.Logger

	tokenURL  string
	reportURL string
}

// NewGoToFetcher creates a new GoToFetcher
func NewGoToFetcher(cfg *config.Config, store storage.Store, logger zerolog.Logger) *GoToFetcher {
	return &GoToFetcher{
		cfg:       cfg,
		store:     store,
		client:    &http.Client{Timeout: cfg.HTTPTimeout},
		logger:    logger.With().Str("component", "goto_fetcher").Logger(),
		tokenURL:  cfg.GoToTokenURL,
		reportURL: cfg.GoToReportURL,
	}
}

type callReportItem struct {
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	DataValues struct {
		InboundVolume      int   `json:"inboundVolume"`
		InboundDuration    int64 `json:"inboundDuration"`
		OutboundVolume     int   `json:"outboundVolume"`
		OutboundDuration   int64 `json:"outboundDuration"`
		AverageDuration    int64 `json:"averageDuration"`
		Volume             int   `json:"volume"`
		TotalDuration      int64 `json:"totalDuration"`
		InboundQueueVolume int   `json:"inboundQueueVolume"`
	} `json:"dataValues"`
}

type callReportResponse struct {
	Items []callReportItem `json:"items"`
}

// FetchCallReports fetches today's call report and upserts the rows.
// Returns a status message for the caller; per-row failures are logged
// and skipped without aborting the batch.
func (f *GoToFetcher) FetchCallReports(ctx context.Context) (string, error) {
	m := metrics.Get()
	m.RecordFetchRun(sourceCalls)

	tokens, err := f.store.GetTokens(TokenProviderGoTo)
	if err != nil {
		m.RecordFetchError(sourceCalls)
		return "", fmt.Errorf("failed to load tokens: %w", err)
	}
	if tokens == nil || tokens.AccessToken == "" {
		m.RecordFetchError(sourceCalls)
		return "", fmt.Errorf("no access token available, complete the authorization flow first")
	}

	now := time.Now().UTC()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	reportURL := fmt.Sprintf("%s?startTime=%s&endTime=%s",
		f.reportURL,
		startOfToday.Format(time.RFC3339),
		now.Format(time.RFC3339))

	resp, err := f.get(ctx, reportURL, tokens.AccessToken)
	if err != nil {
		m.RecordFetchError(sourceCalls)
		return "", err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		f.logger.Info().Msg("access token expired, attempting refresh")

		tokens, err = f.refreshAccessToken(ctx, tokens)
		if err != nil {
			m.RecordFetchError(sourceCalls)
			return "", err
		}

		resp, err = f.get(ctx, reportURL, tokens.AccessToken)
		if err != nil {
			m.RecordFetchError(sourceCalls)
			return "", err
		}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return "No data found for the specified time frame.", nil
	default:
		m.RecordFetchError(sourceCalls)
		return "", fmt.Errorf("call report request failed with status %d", resp.StatusCode)
	}

	var report callReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		m.RecordFetchError(sourceCalls)
		return "", fmt.Errorf("failed to decode call report: %w", err)
	}

	today := types.DateKey(now)
	upserted := 0
	for _, item := range report.Items {
		if err := f.upsertItem(item, today); err != nil {
			f.logger.Error().Err(err).
				Str("user_id", item.UserID).
				Str("date", today).
				Msg("failed to upsert call stats row, skipping")
			m.RecordRowSkipped(sourceCalls)
			continue
		}
		upserted++
	}

	f.logger.Info().
		Int("items", len(report.Items)).
		Int("upserted", upserted).
		Str("date", today).
		Msg("call report processed")

	return "Data refreshed successfully.", nil
}

// upsertItem writes one report row. Rows referencing unknown application
// users are dropped silently.
func (f *GoToFetcher) upsertItem(item callReportItem, date string) error {
	user, err := f.store.GetUser(item.UserID)
	if err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}
	if user == nil {
		f.logger.Debug().Str("user_id", item.UserID).Msg("no application user for report row, skipping")
		metrics.Get().RecordRowSkipped(sourceCalls)
		return nil
	}

	dv := item.DataValues
	stats := types.CallStats{
		ReportDate:         date,
		UserID:             item.UserID,
		UserName:           item.UserName,
		InboundVolume:      dv.InboundVolume,
		InboundDuration:    dv.InboundDuration,
		OutboundVolume:     dv.OutboundVolume,
		OutboundDuration:   dv.OutboundDuration,
		AverageDuration:    dv.AverageDuration,
		Volume:             dv.Volume,
		TotalDuration:      dv.TotalDuration,
		InboundQueueVolume: dv.InboundQueueVolume,
	}

	// Derive the totals from the directional counts when the upstream
	// report omits them.
	if stats.Volume == 0 {
		stats.Volume = dv.InboundVolume + dv.OutboundVolume
	}
	if stats.TotalDuration == 0 {
		stats.TotalDuration = dv.InboundDuration + dv.OutboundDuration
	}

	if err := f.store.UpsertCallStats(stats); err != nil {
		return err
	}
	metrics.Get().RecordRowUpserted(sourceCalls)
	return nil
}

func (f *GoToFetcher) get(ctx context.Context, rawURL, accessToken string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create report request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call report request failed: %w", err)
	}
	return resp, nil
}

// refreshAccessToken exchanges the refresh token for a new token pair and
// persists it.
func (f *GoToFetcher) refreshAccessToken(ctx context.Context, tokens *types.ProviderTokens) (*types.ProviderTokens, error) {
	if tokens.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token available, start the authorization flow again")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", tokens.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(f.cfg.GoToClientID + ":" + f.cfg.GoToClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token refresh failed with status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	refreshed := &types.ProviderTokens{
		Provider:     TokenProviderGoTo,
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = tokens.RefreshToken
	}

	if err := f.store.SaveTokens(*refreshed); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	f.logger.Info().Msg("access token refreshed and saved")
	return refreshed, nil
}
