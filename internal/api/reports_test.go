package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmeyerson/repboard/internal/cache"
	"github.com/dmeyerson/repboard/internal/reports"
	"github.com/dmeyerson/repboard/internal/storage"
	"github.com/dmeyerson/repboard/internal/types"
)

func newReportsHandler(store storage.Store) *ReportsHandler {
	svc := reports.NewService(store, cache.NewReportCache(5*time.Minute), testLogger())
	return NewReportsHandler(svc, testLogger())
}

func TestHandleCallReport(t *testing.T) {
	store := storage.NewMemoryStore()
	store.UpsertCallStats(types.CallStats{ReportDate: "2025-03-10", UserID: "anna@example.com", UserName: "Anna", Volume: 10})

	h := newReportsHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/calls?start=2025-03-10&end=2025-03-10", nil)
	rec := httptest.NewRecorder()
	h.HandleCallReport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var data reports.CallData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(data.Values) != 1 {
		t.Errorf("expected 1 row, got %d", len(data.Values))
	}
}

func TestHandleCallReportInvalidRange(t *testing.T) {
	h := newReportsHandler(storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/api/reports/calls?start=2025-03-11&end=2025-03-10", nil)
	rec := httptest.NewRecorder()
	h.HandleCallReport(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for inverted range, got %d", rec.Code)
	}
}

func TestHandleEmailReportNoData(t *testing.T) {
	h := newReportsHandler(storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/api/reports/email?start=2025-03-10&end=2025-03-10", nil)
	rec := httptest.NewRecorder()
	h.HandleEmailReport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var data reports.EmailStats
	json.Unmarshal(rec.Body.Bytes(), &data)
	if len(data.Users) != 1 || data.Users[0] != "No Data" {
		t.Errorf("expected No Data sentinel, got %v", data.Users)
	}
}

func TestHandleB2BReportDefaultMetric(t *testing.T) {
	store := storage.NewMemoryStore()
	store.UpsertB2BStats(types.B2BStats{ReportDate: "2025-03-10", UserID: "anna@example.com", UserName: "Anna", BusinessCards: 3})

	h := newReportsHandler(store)

	// No metric parameter: business cards is the default
	req := httptest.NewRequest(http.MethodGet, "/api/reports/b2b?start=2025-03-10&end=2025-03-10", nil)
	rec := httptest.NewRecorder()
	h.HandleB2BReport(rec, req)

	var data reports.B2BStats
	json.Unmarshal(rec.Body.Bytes(), &data)
	if data.Metrics["Anna"] != 3 {
		t.Errorf("expected 3 business cards, got %v", data.Metrics)
	}
}

func TestDateRangeParamsDefaults(t *testing.T) {
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	defer func() { timeNow = orig }()

	req := httptest.NewRequest(http.MethodGet, "/api/reports/calls", nil)
	start, end := dateRangeParams(req)

	if end != "2025-03-10" {
		t.Errorf("expected end today, got %s", end)
	}
	if start != "2025-03-04" {
		t.Errorf("expected start six days back, got %s", start)
	}
}
