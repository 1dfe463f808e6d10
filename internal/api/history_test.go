package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mawsool/insights-backend/internal/refresh"
	"github.com/mawsool/insights-backend/internal/storage"
)

type stubStore struct {
	storage.NoopStore
	intervals map[string][]storage.IntervalMetricRecord
	forecasts map[string][]storage.ForecastSnapshotRecord
	err       error
	truncated bool
}

func (s *stubStore) GetIntervalMetrics(dateKey string) ([]storage.IntervalMetricRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.intervals[dateKey], nil
}

func (s *stubStore) GetForecastSnapshots(queueID string) ([]storage.ForecastSnapshotRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.forecasts[queueID], nil
}

func (s *stubStore) TruncateAll() error {
	if s.err != nil {
		return s.err
	}
	s.truncated = true
	return nil
}

func TestHandleIntervalHistory(t *testing.T) {
	store := &stubStore{
		intervals: map[string][]storage.IntervalMetricRecord{
			"2026-08-03": {
				{DateKey: "2026-08-03", BucketKey: "2026-08-03 10:00", Offered: 3, Answered: 2, Abandoned: 1},
				{DateKey: "2026-08-03", BucketKey: "2026-08-04 01:30", Offered: 1, Answered: 1},
			},
		},
	}
	h := NewHistoryHandler(store, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleIntervalHistory(rec, httptest.NewRequest(http.MethodGet, "/api/history?date=2026-08-03", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var records []storage.IntervalMetricRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[1].BucketKey != "2026-08-04 01:30" {
		t.Errorf("after-midnight bucket = %s", records[1].BucketKey)
	}
}

func TestHandleIntervalHistoryEmptyDay(t *testing.T) {
	h := NewHistoryHandler(&stubStore{}, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleIntervalHistory(rec, httptest.NewRequest(http.MethodGet, "/api/history?date=2026-08-01", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
}

func TestHandleIntervalHistoryBadDate(t *testing.T) {
	h := NewHistoryHandler(&stubStore{}, nil, zerolog.Nop())

	for _, query := range []string{"", "date=yesterday", "date=03-08-2026"} {
		rec := httptest.NewRecorder()
		h.HandleIntervalHistory(rec, httptest.NewRequest(http.MethodGet, "/api/history?"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestHandleIntervalHistoryStoreFailure(t *testing.T) {
	h := NewHistoryHandler(&stubStore{err: errors.New("table gone")}, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleIntervalHistory(rec, httptest.NewRequest(http.MethodGet, "/api/history?date=2026-08-03", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleForecastHistory(t *testing.T) {
	up := &fakeUpstream{queueID: "q-1"}
	svc := newRefreshedService(t, up)

	store := &stubStore{
		forecasts: map[string][]storage.ForecastSnapshotRecord{
			"q-1": {{QueueID: "q-1", GeneratedAt: "2026-08-03T09:00:00Z", Generated: time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)}},
		},
	}
	h := NewHistoryHandler(store, svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleForecastHistory(rec, httptest.NewRequest(http.MethodGet, "/api/planner/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var records []storage.ForecastSnapshotRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(records) != 1 || records[0].QueueID != "q-1" {
		t.Errorf("records = %+v", records)
	}
}

func TestHandleForecastHistoryBeforeQueueResolution(t *testing.T) {
	svc := refresh.NewService(&fakeUpstream{queueID: "q-1"}, storage.NewNoopStore(), nil, "Support Line", time.Minute, zerolog.Nop())
	h := NewHistoryHandler(&stubStore{}, svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleForecastHistory(rec, httptest.NewRequest(http.MethodGet, "/api/planner/history", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
