package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/fieldline/go-autopilot/core"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientCredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// RenewBefore is how long before expiry a cached token is discarded.
	RenewBefore time.Duration
	Now         func() time.Time
}

// ClientCredentialsTokenSource exchanges client credentials for a bearer
// token and caches it until shortly before expiry. Token acquisition is
// serialized so a burst of callers produces a single token request.
type ClientCredentialsTokenSource struct {
	config ClientCredentialsConfig
	client HTTPDoer

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClientCredentialsTokenSource(cfg ClientCredentialsConfig, client HTTPDoer) *ClientCredentialsTokenSource {
	if cfg.RenewBefore <= 0 {
		cfg.RenewBefore = 2 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	return &ClientCredentialsTokenSource{
		config: cfg,
		client: client,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *ClientCredentialsTokenSource) Token(ctx context.Context) (string, error) {
	if s == nil {
		return "", tokenError("auth: token source is required", nil)
	}
	if s.config.TokenURL == "" || s.config.ClientID == "" || s.config.ClientSecret == "" {
		return "", goerrors.New(
			"auth: token url, client id, and client secret are required",
			goerrors.CategoryBadInput,
		).WithCode(http.StatusBadRequest).WithTextCode(core.PipelineErrorBadInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.config.Now().UTC()
	if s.token != "" && s.expiresAt.After(now.Add(s.config.RenewBefore)) {
		return s.token, nil
	}

	token, expiresAt, err := s.exchange(ctx, now)
	if err != nil {
		return "", err
	}
	s.token = token
	s.expiresAt = expiresAt
	return token, nil
}

// Invalidate drops the cached token so the next call performs a fresh
// exchange. Callers use it after a 401 from the platform.
func (s *ClientCredentialsTokenSource) Invalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

func (s *ClientCredentialsTokenSource) exchange(ctx context.Context, now time.Time) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.config.ClientID)
	form.Set("client_secret", s.config.ClientSecret)
	if scopes := normalizeScopes(s.config.Scopes); len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, tokenError("auth: build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.client.Do(req)
	if err != nil {
		return "", time.Time{}, tokenError("auth: token endpoint unreachable", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", time.Time{}, goerrors.New(
			"auth: token endpoint rejected credentials",
			goerrors.CategoryExternal,
		).WithCode(http.StatusBadGateway).
			WithTextCode(core.PipelineErrorAuthFailed).
			WithMetadata(map[string]any{"status_code": res.StatusCode})
	}

	var decoded tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return "", time.Time{}, tokenError("auth: decode token response", err)
	}
	token := strings.TrimSpace(decoded.AccessToken)
	if token == "" {
		return "", time.Time{}, tokenError("auth: token response has no access token", nil)
	}

	ttl := time.Duration(decoded.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return token, now.Add(ttl), nil
}

func tokenError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryExternal).
			WithCode(http.StatusBadGateway).
			WithTextCode(core.PipelineErrorAuthFailed)
	}
	return goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.PipelineErrorAuthFailed)
}

func normalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		if trimmed := strings.TrimSpace(scope); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

var _ core.TokenSource = (*ClientCredentialsTokenSource)(nil)
