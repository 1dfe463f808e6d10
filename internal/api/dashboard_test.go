package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mawsool/insights-backend/internal/genesys"
	"github.com/mawsool/insights-backend/internal/refresh"
	"github.com/mawsool/insights-backend/internal/storage"
)

type fakeUpstream struct {
	queueID string
	convs   []genesys.Conversation
	aggs    []genesys.AggregateResult
	convErr error
}

func (f *fakeUpstream) QueueIDByName(_ context.Context, _ string) (string, error) {
	return f.queueID, nil
}

func (f *fakeUpstream) Conversations(_ context.Context, _, _ string) ([]genesys.Conversation, error) {
	if f.convErr != nil {
		return nil, f.convErr
	}
	return f.convs, nil
}

func (f *fakeUpstream) Aggregates(_ context.Context, _ string) ([]genesys.AggregateResult, error) {
	return f.aggs, nil
}

func answeredFixture(id string, start time.Time) genesys.Conversation {
	end := start.Add(2 * time.Minute)
	return genesys.Conversation{
		ConversationID:    id,
		ConversationStart: start,
		ConversationEnd:   &end,
		Participants: []genesys.Participant{
			{Purpose: "external", ANI: "+964700"},
			{
				Purpose: "agent",
				UserID:  "agent-1",
				Sessions: []genesys.Session{{
					MediaType: "voice",
					Segments: []genesys.Segment{{
						SegmentType:  "interact",
						SegmentStart: start.Add(2 * time.Second),
						SegmentEnd:   &end,
					}},
				}},
			},
		},
	}
}

func newRefreshedService(t *testing.T, up *fakeUpstream) *refresh.Service {
	t.Helper()
	svc := refresh.NewService(up, storage.NewNoopStore(), nil, "Support Line", time.Minute, zerolog.Nop())
	if err := svc.Refresh(context.Background(), "manual"); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}
	return svc
}

func TestHandleDashboardBeforeFirstRefresh(t *testing.T) {
	up := &fakeUpstream{queueID: "q-1"}
	svc := refresh.NewService(up, storage.NewNoopStore(), nil, "Support Line", time.Minute, zerolog.Nop())
	h := NewDashboardHandler(svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleDashboard(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleDashboard(t *testing.T) {
	up := &fakeUpstream{
		queueID: "q-1",
		convs:   []genesys.Conversation{answeredFixture("c1", time.Date(2026, 8, 3, 7, 10, 0, 0, time.UTC))},
	}
	h := NewDashboardHandler(newRefreshedService(t, up), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleDashboard(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		History []struct {
			Offered int `json:"offered"`
		} `json:"history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(payload.History) != 1 || payload.History[0].Offered != 1 {
		t.Errorf("history = %+v", payload.History)
	}
}

func TestHandleRefreshUpstreamFailure(t *testing.T) {
	up := &fakeUpstream{
		queueID: "q-1",
		convErr: &genesys.APIError{Status: 503, Message: "rate limited"},
	}
	svc := refresh.NewService(up, storage.NewNoopStore(), nil, "Support Line", time.Minute, zerolog.Nop())
	h := NewDashboardHandler(svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleRefresh(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var payload struct {
		UpstreamStatus int    `json:"upstreamStatus"`
		Message        string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.UpstreamStatus != 503 || payload.Message != "rate limited" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestHandleRefreshSuccess(t *testing.T) {
	up := &fakeUpstream{
		queueID: "q-1",
		convs:   []genesys.Conversation{answeredFixture("c1", time.Date(2026, 8, 3, 7, 10, 0, 0, time.UTC))},
	}
	svc := refresh.NewService(up, storage.NewNoopStore(), nil, "Support Line", time.Minute, zerolog.Nop())
	h := NewDashboardHandler(svc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleRefresh(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleInteractions(rec, httptest.NewRequest(http.MethodGet, "/api/interactions", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("interactions after refresh: status = %d", rec.Code)
	}
}

func TestHandleCustomers(t *testing.T) {
	// One caller abandons and is answered later the same business day.
	start := time.Date(2026, 8, 3, 7, 0, 0, 0, time.UTC)
	abandoned := genesys.Conversation{
		ConversationID:    "a1",
		ConversationStart: start,
		Participants:      []genesys.Participant{{Purpose: "external", ANI: "+964700"}},
	}
	up := &fakeUpstream{
		queueID: "q-1",
		convs:   []genesys.Conversation{abandoned, answeredFixture("a2", start.Add(time.Hour))},
	}
	h := NewDashboardHandler(newRefreshedService(t, up), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleCustomers(rec, httptest.NewRequest(http.MethodGet, "/api/customers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		Summary []struct {
			Recovered int `json:"recovered"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(payload.Summary) != 1 || payload.Summary[0].Recovered != 1 {
		t.Errorf("summary = %+v", payload.Summary)
	}
}
