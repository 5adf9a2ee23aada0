package taiga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// Credentials are the username/password pair used for a normal login
type Credentials struct {
	Username string
	Password string
}

// SessionOptions controls token lifetime and transport
type SessionOptions struct {
	// TokenTTL expires a cached token this long after login; zero keeps it
	// until Invalidate or process exit.
	TokenTTL time.Duration
	// HonorTokenExpiry also expires a token at its JWT exp claim.
	HonorTokenExpiry bool
	HTTPClient       *http.Client
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// AuthResponse is the body returned by /auth and /auth/refresh
type AuthResponse struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	AuthToken    string `json:"auth_token"`
	RefreshToken string `json:"refresh"`
}

// Session owns the cached bearer token for one Taiga account and performs
// login when the token is missing or expired.
type Session struct {
	baseURL    string
	httpClient *http.Client
	opts       SessionOptions

	mu        sync.RWMutex
	creds     Credentials
	token     string
	refresh   string
	user      *User
	expiresAt time.Time

	group singleflight.Group
}

// NewSession creates a session that logs in with creds on first use
func NewSession(baseURL string, creds Credentials, opts SessionOptions) *Session {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Session{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: hc,
		opts:       opts,
		creds:      creds,
	}
}

// Client returns an API client authenticated through this session
func (s *Session) Client() *Client {
	return NewClient(s.baseURL, s, WithHTTPClient(s.httpClient))
}

func (s *Session) now() time.Time {
	if s.opts.Now != nil {
		return s.opts.Now()
	}
	return time.Now()
}

// cached returns the token when one is held and still valid
func (s *Session) cached() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", false
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		return "", false
	}
	return s.token, true
}

// Token returns the cached bearer token, logging in first when needed
func (s *Session) Token(ctx context.Context) (string, error) {
	if token, ok := s.cached(); ok {
		return token, nil
	}

	// The login is shared by every waiter, so it runs detached from the
	// caller that started it. Each caller still stops waiting on its own ctx.
	loginCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("token", func() (any, error) {
		// Another caller may have finished a login while we waited.
		if token, ok := s.cached(); ok {
			return token, nil
		}
		auth, err := s.renew(loginCtx)
		if err != nil {
			return "", err
		}
		return auth.AuthToken, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// renew tries the refresh token of an expired session, then a full login
func (s *Session) renew(ctx context.Context) (*AuthResponse, error) {
	s.mu.RLock()
	refresh := s.refresh
	creds := s.creds
	s.mu.RUnlock()

	if refresh != "" {
		auth, err := s.post(ctx, "/auth/refresh", map[string]string{"refresh": refresh})
		if err == nil {
			s.store(auth)
			slog.Debug("refreshed taiga token", "username", auth.Username)
			return auth, nil
		}
		slog.Debug("token refresh failed, logging in again", "error", err)
	}

	return s.login(ctx, creds)
}

func (s *Session) login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, &AuthError{Username: creds.Username, Err: errors.New("username and password are required (set TAIGA_USERNAME and TAIGA_PASSWORD)")}
	}

	auth, err := s.post(ctx, "/auth", map[string]string{
		"type":     "normal",
		"username": creds.Username,
		"password": creds.Password,
	})
	if err != nil {
		return nil, &AuthError{Username: creds.Username, Err: err}
	}

	s.store(auth)
	slog.Info("authenticated with taiga", "username", auth.Username, "user_id", auth.ID)
	return auth, nil
}

func (s *Session) post(ctx context.Context, path string, body any) (*AuthResponse, error) {
	data, err := send(ctx, s.httpClient, http.MethodPost, s.baseURL, path, "", body, nil)
	if err != nil {
		return nil, err
	}

	var auth AuthResponse
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("failed to parse auth response: %w", err)
	}
	if auth.AuthToken == "" {
		return nil, errors.New("response did not contain an auth token")
	}
	return &auth, nil
}

func (s *Session) store(auth *AuthResponse) {
	expiresAt := s.expiry(auth.AuthToken)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = auth.AuthToken
	s.refresh = auth.RefreshToken
	s.expiresAt = expiresAt
	s.user = &User{
		ID:              auth.ID,
		Username:        auth.Username,
		FullName:        auth.FullName,
		FullNameDisplay: auth.FullName,
		Email:           auth.Email,
	}
}

// expiry applies the lifetime policy; the zero time means no expiry
func (s *Session) expiry(token string) time.Time {
	var expiresAt time.Time
	if s.opts.TokenTTL > 0 {
		expiresAt = s.now().Add(s.opts.TokenTTL)
	}
	if !s.opts.HonorTokenExpiry {
		return expiresAt
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return expiresAt
	}
	if expiresAt.IsZero() || claims.ExpiresAt.Before(expiresAt) {
		return claims.ExpiresAt.Time
	}
	return expiresAt
}

// Authenticate logs in explicitly. Empty credentials reuse the configured
// ones; non-empty credentials replace them for later logins once the login
// succeeds.
func (s *Session) Authenticate(ctx context.Context, creds Credentials) (*User, error) {
	s.mu.RLock()
	replace := creds.Username != "" || creds.Password != ""
	if !replace {
		creds = s.creds
	}
	s.mu.RUnlock()

	if _, err := s.login(ctx, creds); err != nil {
		return nil, err
	}
	if replace {
		s.mu.Lock()
		s.creds = creds
		s.mu.Unlock()
	}
	return s.identity()
}

// CurrentUser returns the identity the cached token belongs to
func (s *Session) CurrentUser(ctx context.Context) (*User, error) {
	if _, err := s.Token(ctx); err != nil {
		return nil, err
	}
	return s.identity()
}

func (s *Session) identity() (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, &AuthError{Username: s.creds.Username, Err: errors.New("no active session")}
	}
	u := *s.user
	return &u, nil
}

// Invalidate drops the cached token so the next request logs in again
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.refresh = ""
	s.user = nil
	s.expiresAt = time.Time{}
}

// ExpiresAt reports when the cached token expires; zero means never
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}
