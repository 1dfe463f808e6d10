package genesys

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// loginRewriter routes the login.<region> request to a local test server.
type loginRewriter struct {
	target *url.URL
}

func (rt loginRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func tokenTestServer(t *testing.T, fetches *atomic.Int64, expiresIn int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if r.Method != http.MethodPost || r.URL.Path != "/oauth/token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			t.Errorf("basic auth = %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-1",
			"expires_in":   expiresIn,
		})
	}))
}

func TestTokenCachedUntilExpiryBuffer(t *testing.T) {
	var fetches atomic.Int64
	srv := tokenTestServer(t, &fetches, 3600)
	defer srv.Close()
	target, _ := url.Parse(srv.URL)

	clock := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	ts := NewTokenSource("id", "secret", "mypurecloud.ae", zerolog.Nop()).
		WithClock(func() time.Time { return clock }).
		WithHTTPClient(&http.Client{Transport: loginRewriter{target: target}})

	tok, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("first token: %v", err)
	}
	if tok != "tok-1" {
		t.Errorf("token = %q", tok)
	}
	if fetches.Load() != 1 {
		t.Fatalf("fetches = %d, want 1", fetches.Load())
	}

	// Well inside the lifetime: cached.
	clock = clock.Add(58 * time.Minute)
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("cached token: %v", err)
	}
	if fetches.Load() != 1 {
		t.Errorf("fetches = %d, cache miss inside lifetime", fetches.Load())
	}

	// Inside the 60s refresh buffer: refetched even though not yet expired.
	clock = clock.Add(90 * time.Second)
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if fetches.Load() != 2 {
		t.Errorf("fetches = %d, want 2 after entering expiry buffer", fetches.Load())
	}
}

func TestTokenMissingCredentials(t *testing.T) {
	ts := NewTokenSource("", "", "mypurecloud.ae", zerolog.Nop())
	if _, err := ts.Token(context.Background()); err == nil {
		t.Fatal("expected error with empty credentials")
	}
}

func TestTokenAuthRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	target, _ := url.Parse(srv.URL)

	ts := NewTokenSource("id", "wrong", "mypurecloud.ae", zerolog.Nop()).
		WithHTTPClient(&http.Client{Transport: loginRewriter{target: target}})

	_, err := ts.Token(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apiErr.Status)
	}
}
