package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmeyerson/repboard/internal/config"
	"github.com/dmeyerson/repboard/internal/storage"
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/rs/zerolog"
)

// graphStub fakes the two Graph calls the fetcher makes: the user search
// and the per-folder message count. Counts are keyed by "email|folder".
type graphStub struct {
	counts    map[string]int
	failUsers map[string]bool
}

func (g *graphStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("ConsistencyLevel") != "eventual" {
			t.Error("expected ConsistencyLevel: eventual header")
		}

		if r.URL.Path == "/users" {
			filter := r.URL.Query().Get("$filter")
			email := extractEmail(filter)
			if g.failUsers[email] {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"value": []map[string]string{{"id": "graph-" + email}},
			})
			return
		}

		// /users/graph-<email>/mailFolders/<folder>/messages
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
		email := strings.TrimPrefix(parts[0], "graph-")
		folder := parts[2]
		json.NewEncoder(w).Encode(map[string]any{
			"@odata.count": g.counts[email+"|"+folder],
		})
	}
}

func extractEmail(filter string) string {
	// filter looks like: mail eq 'x@example.com' or userPrincipalName eq '...'
	start := strings.Index(filter, "'")
	if start < 0 {
		return ""
	}
	rest := filter[start+1:]
	end := strings.Index(rest, "'")
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func newOutlookFetcher(store storage.Store, graphURL, tokenURL string) *OutlookFetcher {
	cfg := &config.Config{
		HTTPTimeout:    5 * time.Second,
		MSClientID:     "client-id",
		MSClientSecret: "client-secret",
		MSTenantID:     "tenant",
	}
	f := NewOutlookFetcher(cfg, store, zerolog.New(&bytes.Buffer{}))
	f.baseURL = graphURL
	f.tokenURL = tokenURL
	return f
}

func newTokenServer(t *testing.T, requests *int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests++
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("unexpected grant type %q", r.Form.Get("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "graph-token",
			"expires_in":   3600,
		})
	}))
}

func TestFetchUserEmailStats(t *testing.T) {
	store := storage.NewMemoryStore()
	store.UpsertUser(types.User{Email: "anna@example.com", DisplayName: "Anna", Active: true})
	store.UpsertUser(types.User{Email: "ben@example.com", DisplayName: "Ben", Active: true})
	store.UpsertUser(types.User{Email: "carla@example.com", DisplayName: "Carla", Active: false})

	stub := &graphStub{counts: map[string]int{
		"anna@example.com|Inbox":     12,
		"anna@example.com|SentItems": 8,
		"ben@example.com|Inbox":      3,
		"ben@example.com|SentItems":  1,
	}}
	graphServer := httptest.NewServer(stub.handler(t))
	defer graphServer.Close()

	var tokenRequests int
	tokenServer := newTokenServer(t, &tokenRequests)
	defer tokenServer.Close()

	f := newOutlookFetcher(store, graphServer.URL, tokenServer.URL)

	results, err := f.FetchUserEmailStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Carla is inactive and must be skipped entirely
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	today := types.DateKey(time.Now().UTC())
	row, _ := store.GetUserEmailStats("anna@example.com", today)
	if row == nil || row.Inbound != 12 || row.Outbound != 8 || row.Total != 20 {
		t.Errorf("unexpected anna row: %+v", row)
	}
	if row.UserName != "Anna" {
		t.Errorf("expected display name on row, got %q", row.UserName)
	}
}

func TestFetchUserEmailStatsCachesToken(t *testing.T) {
	store := storage.NewMemoryStore()
	store.UpsertUser(types.User{Email: "anna@example.com", DisplayName: "Anna", Active: true})

	stub := &graphStub{counts: map[string]int{}}
	graphServer := httptest.NewServer(stub.handler(t))
	defer graphServer.Close()

	var tokenRequests int
	tokenServer := newTokenServer(t, &tokenRequests)
	defer tokenServer.Close()

	f := newOutlookFetcher(store, graphServer.URL, tokenServer.URL)

	for i := 0; i < 3; i++ {
		if _, err := f.FetchUserEmailStats(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if tokenRequests != 1 {
		t.Errorf("expected 1 token request across 3 runs, got %d", tokenRequests)
	}
}

func TestFetchUserEmailStatsPerUserFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	store.UpsertUser(types.User{Email: "anna@example.com", DisplayName: "Anna", Active: true})
	store.UpsertUser(types.User{Email: "ben@example.com", DisplayName: "Ben", Active: true})

	stub := &graphStub{
		counts:    map[string]int{"ben@example.com|Inbox": 5, "ben@example.com|SentItems": 2},
		failUsers: map[string]bool{"anna@example.com": true},
	}
	graphServer := httptest.NewServer(stub.handler(t))
	defer graphServer.Close()

	var tokenRequests int
	tokenServer := newTokenServer(t, &tokenRequests)
	defer tokenServer.Close()

	f := newOutlookFetcher(store, graphServer.URL, tokenServer.URL)

	results, err := f.FetchUserEmailStats(context.Background())
	if err != nil {
		t.Fatalf("one failing user must not abort the batch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	today := types.DateKey(time.Now().UTC())
	if row, _ := store.GetUserEmailStats("anna@example.com", today); row != nil {
		t.Error("expected no row for the failed user")
	}
	if row, _ := store.GetUserEmailStats("ben@example.com", today); row == nil || row.Total != 7 {
		t.Errorf("expected ben row with total 7, got %+v", row)
	}
}

func TestFetchUserEmailStatsUnknownGraphUser(t *testing.T) {
	store := storage.NewMemoryStore()
	store.UpsertUser(types.User{Email: "ghost@example.com", DisplayName: "Ghost", Active: true})

	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Graph account matches the address
		json.NewEncoder(w).Encode(map[string]any{"value": []any{}})
	}))
	defer graphServer.Close()

	var tokenRequests int
	tokenServer := newTokenServer(t, &tokenRequests)
	defer tokenServer.Close()

	f := newOutlookFetcher(store, graphServer.URL, tokenServer.URL)

	results, err := f.FetchUserEmailStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].InboxCount != 0 || results[0].SentCount != 0 {
		t.Errorf("expected zero counts for unknown Graph user, got %+v", results)
	}

	// Zero counts are still a valid daily row
	today := types.DateKey(time.Now().UTC())
	if row, _ := store.GetUserEmailStats("ghost@example.com", today); row == nil || row.Total != 0 {
		t.Errorf("expected zero-valued row persisted, got %+v", row)
	}
}
