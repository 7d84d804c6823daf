package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmeyerson/repboard/internal/config"
	"github.com/dmeyerson/repboard/internal/metrics"
	"github.com/dmeyerson/repboard/internal/storage"
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/rs/zerolog"
)

const sourceEmail = "email"

// OutlookFetcher pulls per-user daily mailbox counts from Microsoft Graph
// and upserts one outlook_statistics row per rep. Graph is accessed with a
// client-credentials token cached in-process until shortly before expiry.
type OutlookFetcher struct {
	cfg    *config.Config
	store  storage.Store
	client *http.Client
	logger zerolog.Logger

	tokenURL string
	baseURL  string

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewOutlookFetcher creates a new OutlookFetcher
func NewOutlookFetcher(cfg *config.Config, store storage.Store, logger zerolog.Logger) *OutlookFetcher {
	return &OutlookFetcher{
		cfg:      cfg,
		store:    store,
		client:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger:   logger.With().Str("component", "outlook_fetcher").Logger(),
		tokenURL: fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.MSTenantID),
		baseURL:  cfg.GraphBaseURL,
	}
}

// accessToken returns a cached client-credentials token, fetching a new
// one when the cached token is within a minute of expiry.
func (f *OutlookFetcher) accessToken(ctx context.Context) (string, error) {
	f.tokenMu.Lock()
	defer f.tokenMu.Unlock()

	if f.token != "" && time.Now().Before(f.tokenExpiry) {
		return f.token, nil
	}

	form := url.Values{}
	form.Set("client_id", f.cfg.MSClientID)
	form.Set("client_secret", f.cfg.MSClientSecret)
	form.Set("scope", "https://graph.microsoft.com/.default")
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	f.token = body.AccessToken
	// One minute buffer so a token never expires mid-batch
	f.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn-60) * time.Second)
	return f.token, nil
}

// FetchUserEmailStats fetches today's inbox and sent counts for every
// active application user and upserts the rows. A failure for one user is
// logged and does not abort the batch; that user is reported with zero
// counts.
func (f *OutlookFetcher) FetchUserEmailStats(ctx context.Context) ([]types.EmailFetchResult, error) {
	m := metrics.Get()
	m.RecordFetchRun(sourceEmail)

	token, err := f.accessToken(ctx)
	if err != nil {
		m.RecordFetchError(sourceEmail)
		return nil, err
	}

	users, err := f.store.ListUsers()
	if err != nil {
		m.RecordFetchError(sourceEmail)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	today := types.DateKey(now)

	results := make([]types.EmailFetchResult, 0, len(users))
	for _, user := range users {
		if user.Email == "" || !user.Active {
			continue
		}

		inbox, sent, err := f.fetchUserCounts(ctx, token, user.Email, dayStart)
		if err != nil {
			f.logger.Error().Err(err).Str("user", user.Email).Msg("email stats fetch failed, skipping user")
			m.RecordRowSkipped(sourceEmail)
			results = append(results, types.EmailFetchResult{User: user.Email})
			continue
		}

		stats := types.EmailStats{
			ReportDate: today,
			UserID:     user.Email,
			UserName:   user.DisplayName,
			Inbound:    inbox,
			Outbound:   sent,
			Total:      inbox + sent,
		}
		if err := f.store.UpsertEmailStats(stats); err != nil {
			f.logger.Error().Err(err).Str("user", user.Email).Msg("failed to upsert email stats, skipping user")
			m.RecordRowSkipped(sourceEmail)
			results = append(results, types.EmailFetchResult{User: user.Email})
			continue
		}
		m.RecordRowUpserted(sourceEmail)

		results = append(results, types.EmailFetchResult{
			User:       user.Email,
			InboxCount: inbox,
			SentCount:  sent,
		})
	}

	f.logger.Info().Int("users", len(results)).Str("date", today).Msg("email stats processed")
	return results, nil
}

// fetchUserCounts resolves the Graph user for an email address and counts
// today's Inbox and SentItems messages. An address with no Graph user
// yields zero counts, not an error.
func (f *OutlookFetcher) fetchUserCounts(ctx context.Context, token, email, dayStart string) (int, int, error) {
	filter := fmt.Sprintf("mail eq '%s' or userPrincipalName eq '%s'", email, email)
	searchURL := fmt.Sprintf("%s/users?$filter=%s", f.baseURL, url.QueryEscape(filter))

	var search struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	if err := f.getJSON(ctx, token, searchURL, &search); err != nil {
		return 0, 0, fmt.Errorf("user search failed: %w", err)
	}
	if len(search.Value) == 0 {
		f.logger.Debug().Str("email", email).Msg("no Graph user found for email")
		return 0, 0, nil
	}
	userID := search.Value[0].ID

	inbox, err := f.folderCount(ctx, token, userID, "Inbox", "receivedDateTime", dayStart)
	if err != nil {
		return 0, 0, fmt.Errorf("inbox count failed: %w", err)
	}

	sent, err := f.folderCount(ctx, token, userID, "SentItems", "sentDateTime", dayStart)
	if err != nil {
		return 0, 0, fmt.Errorf("sent count failed: %w", err)
	}

	return inbox, sent, nil
}

func (f *OutlookFetcher) folderCount(ctx context.Context, token, userID, folder, dateField, dayStart string) (int, error) {
	countURL := fmt.Sprintf("%s/users/%s/mailFolders/%s/messages?$top=1&$count=true&$filter=%s",
		f.baseURL, userID, folder,
		url.QueryEscape(fmt.Sprintf("%s ge %s", dateField, dayStart)))

	var body struct {
		Count int `json:"@odata.count"`
	}
	if err := f.getJSON(ctx, token, countURL, &body); err != nil {
		return 0, err
	}
	return body.Count, nil
}

func (f *OutlookFetcher) getJSON(ctx context.Context, token, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	// Required by Graph for $count queries
	req.Header.Set("ConsistencyLevel", "eventual")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
