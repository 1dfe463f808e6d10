package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mawsool/insights-backend/internal/auth"
)

func truncateRequest(claims *auth.Claims) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/truncate", nil)
	if claims != nil {
		req = req.WithContext(context.WithValue(req.Context(), auth.UserContextKey, claims))
	}
	return req
}

func TestRequireAdmin(t *testing.T) {
	store := &stubStore{}
	handler := RequireAdmin(http.HandlerFunc(NewAdminHandler(store, zerolog.Nop()).HandleTruncate))

	tests := []struct {
		name       string
		claims     *auth.Claims
		wantStatus int
	}{
		{"no claims", nil, http.StatusForbidden},
		{"viewer role", &auth.Claims{Email: "viewer@mawsool.iq", Role: "viewer"}, http.StatusForbidden},
		{"admin role", &auth.Claims{Email: "ops@mawsool.iq", Role: "admin"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, truncateRequest(tt.claims))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	if !store.truncated {
		t.Error("admin request did not reach TruncateAll")
	}
}

func TestRequireAdminBlocksStore(t *testing.T) {
	store := &stubStore{}
	handler := RequireAdmin(http.HandlerFunc(NewAdminHandler(store, zerolog.Nop()).HandleTruncate))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, truncateRequest(&auth.Claims{Role: "viewer"}))

	if store.truncated {
		t.Error("forbidden request must not truncate")
	}
	if !strings.Contains(rec.Body.String(), "admin role required") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleTruncateStoreFailure(t *testing.T) {
	h := NewAdminHandler(&stubStore{err: errors.New("dynamodb down")}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleTruncate(rec, truncateRequest(nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
