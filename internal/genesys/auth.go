package genesys

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// expiryBuffer is subtracted from the token lifetime so a token is refreshed
// before the upstream actually rejects it.
const expiryBuffer = time.Minute

// TokenSource acquires and caches an OAuth client-credentials token for the
// Genesys Cloud API. The cached token and the clock are explicit state so
// expiry behavior is testable without global variables.
type TokenSource struct {
	clientID     string
	clientSecret string
	region       string
	httpClient   *http.Client
	now          func() time.Time
	logger       zerolog.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource creates a token source for the given credentials and region
// (e.g. "mypurecloud.ae").
func NewTokenSource(clientID, clientSecret, region string, logger zerolog.Logger) *TokenSource {
	return &TokenSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		region:       region,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		now:          time.Now,
		logger:       logger.With().Str("component", "token_source").Logger(),
	}
}

// WithClock overrides the clock used for expiry checks. Intended for tests.
func (ts *TokenSource) WithClock(now func() time.Time) *TokenSource {
	ts.now = now
	return ts
}

// WithHTTPClient overrides the HTTP client. Intended for tests.
func (ts *TokenSource) WithHTTPClient(c *http.Client) *TokenSource {
	ts.httpClient = c
	return ts
}

// Token returns a valid access token, fetching a new one when the cached
// token is missing or within the expiry buffer.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Before(ts.expires.Add(-expiryBuffer)) {
		return ts.token, nil
	}

	if ts.clientID == "" || ts.clientSecret == "" {
		return "", fmt.Errorf("genesys credentials not configured")
	}

	authURL := fmt.Sprintf("https://login.%s/oauth/token", ts.region)
	body := url.Values{"grant_type": {"client_credentials"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(ts.clientID + ":" + ts.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request to %s failed: %w", authURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		ts.logger.Error().Int("status", resp.StatusCode).Str("body", string(raw)).Msg("oauth token request rejected")
		return "", &APIError{Status: resp.StatusCode, Message: "authentication failed"}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	ts.token = payload.AccessToken
	ts.expires = ts.now().Add(time.Duration(payload.ExpiresIn) * time.Second)

	ts.logger.Debug().Time("expires", ts.expires).Msg("access token refreshed")
	return ts.token, nil
}

// Region returns the configured API region.
func (ts *TokenSource) Region() string {
	return ts.region
}
