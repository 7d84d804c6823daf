package aggregator

import (
	"bytes"
	"testing"
	"time"

	"github.com/dmeyerson/repboard/internal/cache"
	"github.com/dmeyerson/repboard/internal/storage"
	"github.com/dmeyerson/repboard/internal/types"
	"github.com/rs/zerolog"
)

func newTestService(store storage.Store) *Service {
	logger := zerolog.New(&bytes.Buffer{})
	return NewService(store, cache.NewReportCache(5*time.Minute), logger)
}

func TestCalculateAverageRepStats(t *testing.T) {
	store := storage.NewMemoryStore()
	store.UpsertCallStats(types.CallStats{ReportDate: "2025-03-10", UserID: "anna@example.com", Volume: 10, TotalDuration: 600000})
	store.UpsertCallStats(types.CallStats{ReportDate: "2025-03-10", UserID: "ben@example.com", Volume: 20, TotalDuration: 1200000})
	// Carla registered but reported nothing: she must not drag the mean down
	store.UpsertUser(types.User{Email: "carla@example.com", DisplayName: "Carla", Active: true})

	store.UpsertEmailStats(types.EmailStats{ReportDate: "2025-03-10", UserID: "anna@example.com", Inbound: 4, Outbound: 6, Total: 10})

	svc := newTestService(store)
	if err := svc.CalculateAverageRepStats("2025-03-10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	avg, err := store.GetAverageRep("2025-03-10")
	if err != nil {
		t.Fatalf("get average: %v", err)
	}
	if avg == nil {
		t.Fatal("expected average row to exist")
	}

	if avg.CallVolume != 15 {
		t.Errorf("expected call volume mean 15 over 2 reps, got %v", avg.CallVolume)
	}
	if avg.CallsTime != 900000 {
		t.Errorf("expected calls time mean 900000, got %v", avg.CallsTime)
	}
	// Email mean over the single rep with data
	if avg.EmailsSent != 6 || avg.EmailsReceived != 4 {
		t.Errorf("expected email means 6/4, got %v/%v", avg.EmailsSent, avg.EmailsReceived)
	}
	// No b2b rows: zeros, not an error
	if avg.BusinessCards != 0 || avg.Flyers != 0 || avg.B2BEmails != 0 {
		t.Errorf("expected zero b2b means, got %+v", avg)
	}
}

func TestCalculateAverageRepStatsNoData(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)

	if err := svc.CalculateAverageRepStats("2025-03-10"); err != nil {
		t.Fatalf("expected success for empty day, got %v", err)
	}

	avg, err := store.GetAverageRep("2025-03-10")
	if err != nil {
		t.Fatalf("get average: %v", err)
	}
	if avg == nil {
		t.Fatal("expected a zero-valued average row")
	}
	for name, value := range avg.Metrics() {
		if value != 0 {
			t.Errorf("expected %s to default to 0, got %v", name, value)
		}
	}
}

func TestCalculateAverageRepStatsUpdatesInPlace(t *testing.T) {
	store := storage.NewMemoryStore()
	store.UpsertCallStats(types.CallStats{ReportDate: "2025-03-10", UserID: "anna@example.com", Volume: 10})

	svc := newTestService(store)
	if err := svc.CalculateAverageRepStats("2025-03-10"); err != nil {
		t.Fatalf("first run: %v", err)
	}

	store.UpsertCallStats(types.CallStats{ReportDate: "2025-03-10", UserID: "ben@example.com", Volume: 30})
	if err := svc.CalculateAverageRepStats("2025-03-10"); err != nil {
		t.Fatalf("second run: %v", err)
	}

	avg, _ := store.GetAverageRep("2025-03-10")
	if avg == nil || avg.CallVolume != 20 {
		t.Fatalf("expected updated mean 20, got %+v", avg)
	}
}

func TestRecalculateTodaysAverages(t *testing.T) {
	store := storage.NewMemoryStore()
	reportCache := cache.NewReportCache(5 * time.Minute)
	logger := zerolog.New(&bytes.Buffer{})

	svc := NewService(store, reportCache, logger)
	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	}

	// Stale snapshot and a cached report derived from it
	store.UpsertAverageRep(types.AverageRep{ReportDate: "2025-03-10", CallVolume: 99})
	reportCache.Put("calls|2025-03-10|2025-03-10", "stale")

	store.UpsertCallStats(types.CallStats{ReportDate: "2025-03-10", UserID: "anna@example.com", Volume: 10})
	store.UpsertCallStats(types.CallStats{ReportDate: "2025-03-10", UserID: "ben@example.com", Volume: 20})

	if err := svc.RecalculateTodaysAverages(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	avg, err := store.GetAverageRep("2025-03-10")
	if err != nil {
		t.Fatalf("get average: %v", err)
	}
	if avg == nil {
		t.Fatal("expected exactly one average row after recompute")
	}
	if avg.CallVolume != 15 {
		t.Errorf("expected recomputed mean 15, got %v", avg.CallVolume)
	}

	if _, ok := reportCache.Get("calls|2025-03-10|2025-03-10"); ok {
		t.Error("expected cached reports to be invalidated by forced refresh")
	}
}
