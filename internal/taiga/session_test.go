package taiga

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authServer fakes the Taiga /auth endpoints and counts logins
type authServer struct {
	*httptest.Server
	logins    atomic.Int32
	refreshes atomic.Int32
	token     func(n int32) string
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()
	as := &authServer{
		token: func(n int32) string { return "token-" + string(rune('0'+n)) },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["type"] != "normal" || body["username"] != "alice" || body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"_error_message": "Username or password does not matches user."}`))
			return
		}
		n := as.logins.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(AuthResponse{
			ID:           7,
			Username:     "alice",
			FullName:     "Alice Liddell",
			Email:        "alice@example.com",
			AuthToken:    as.token(n),
			RefreshToken: "refresh-token",
		})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		as.refreshes.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id": 7, "username": "alice", "full_name_display": "Alice Liddell"}`))
	})

	as.Server = httptest.NewServer(mux)
	t.Cleanup(as.Close)
	return as
}

func TestSession_ReusesCachedToken(t *testing.T) {
	as := newAuthServer(t)
	s := NewSession(as.URL, Credentials{Username: "alice", Password: "secret"}, SessionOptions{})

	first, err := s.Token(context.Background())
	require.NoError(t, err)
	second, err := s.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), as.logins.Load(), "second call must not log in again")
}

func TestSession_ClientSendsBearerToken(t *testing.T) {
	as := newAuthServer(t)
	s := NewSession(as.URL, Credentials{Username: "alice", Password: "secret"}, SessionOptions{})
	client := s.Client()

	me, err := client.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	_, err = client.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), as.logins.Load())
}

func TestSession_ConcurrentCallersShareOneLogin(t *testing.T) {
	as := newAuthServer(t)
	s := NewSession(as.URL, Credentials{Username: "alice", Password: "secret"}, SessionOptions{})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Token(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), as.logins.Load())
}

func TestSession_BadCredentials(t *testing.T) {
	as := newAuthServer(t)
	s := NewSession(as.URL, Credentials{Username: "alice", Password: "wrong"}, SessionOptions{})

	_, err := s.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthentication))

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "alice", authErr.Username)
	assert.Contains(t, err.Error(), "Username or password does not matches user.")
}

func TestSession_MissingCredentials(t *testing.T) {
	as := newAuthServer(t)
	s := NewSession(as.URL, Credentials{}, SessionOptions{})

	_, err := s.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, int32(0), as.logins.Load(), "no login request without credentials")
}

func TestSession_AuthenticateReplacesCredentials(t *testing.T) {
	as := newAuthServer(t)
	s := NewSession(as.URL, Credentials{}, SessionOptions{})

	user, err := s.Authenticate(context.Background(), Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
	assert.Equal(t, "Alice Liddell", user.FullName)

	// The explicit login is reused by later requests.
	_, err = s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), as.logins.Load())

	// Re-authenticating with no arguments uses the stored credentials.
	_, err = s.Authenticate(context.Background(), Credentials{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), as.logins.Load())
}

func TestSession_FailedAuthenticateKeepsCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"wrong password", Credentials{Username: "mallory", Password: "wrong"}},
		{"username only", Credentials{Username: "mallory"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			as := newAuthServer(t)
			s := NewSession(as.URL, Credentials{Username: "alice", Password: "secret"}, SessionOptions{})

			_, err := s.Token(context.Background())
			require.NoError(t, err)

			_, err = s.Authenticate(context.Background(), tt.creds)
			require.ErrorIs(t, err, ErrAuthentication)

			user, err := s.CurrentUser(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "alice", user.Username)

			// Later logins still use the configured account.
			s.Invalidate()
			_, err = s.Token(context.Background())
			require.NoError(t, err)
			assert.Equal(t, int32(2), as.logins.Load())
		})
	}
}

func TestSession_CanceledCallerDoesNotAbortSharedLogin(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var logins atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		logins.Add(1)
		_ = json.NewEncoder(w).Encode(AuthResponse{ID: 7, Username: "alice", AuthToken: "shared-token"})
	}))
	t.Cleanup(srv.Close)

	s := NewSession(srv.URL, Credentials{Username: "alice", Password: "secret"}, SessionOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Token(ctx)
		firstErr <- err
	}()
	<-started

	waiter := make(chan string, 1)
	go func() {
		token, err := s.Token(context.Background())
		assert.NoError(t, err)
		waiter <- token
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	select {
	case token := <-waiter:
		assert.Equal(t, "shared-token", token)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never received the shared token")
	}
	assert.Equal(t, int32(1), logins.Load())
}

func TestSession_InvalidateForcesLogin(t *testing.T) {
	as := newAuthServer(t)
	s := NewSession(as.URL, Credentials{Username: "alice", Password: "secret"}, SessionOptions{})

	_, err := s.Token(context.Background())
	require.NoError(t, err)

	s.Invalidate()
	token, err := s.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "token-2", token)
	assert.Equal(t, int32(2), as.logins.Load())
	assert.Equal(t, int32(0), as.refreshes.Load(), "invalidate drops the refresh token")
}

func TestSession_TTLExpiry(t *testing.T) {
	as := newAuthServer(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(as.URL, Credentials{Username: "alice", Password: "secret"}, SessionOptions{
		TokenTTL: time.Hour,
		Now:      func() time.Time { return now },
	})

	_, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), s.ExpiresAt())

	now = now.Add(59 * time.Minute)
	_, err = s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), as.logins.Load())

	now = now.Add(2 * time.Minute)
	_, err = s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), as.refreshes.Load(), "expired token tries refresh first")
	assert.Equal(t, int32(2), as.logins.Load(), "failed refresh falls back to login")
}

func TestSession_HonorsJWTExpiry(t *testing.T) {
	as := newAuthServer(t)
	exp := time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)
	as.token = func(n int32) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			Subject:   "alice",
		}).SignedString([]byte("test-key"))
		require.NoError(t, err)
		return token
	}

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	opts := SessionOptions{HonorTokenExpiry: true, Now: func() time.Time { return now }}
	s := NewSession(as.URL, Credentials{Username: "alice", Password: "secret"}, opts)

	_, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt().Equal(exp))

	// Without the policy the same token never expires locally.
	opts.HonorTokenExpiry = false
	s = NewSession(as.URL, Credentials{Username: "alice", Password: "secret"}, opts)
	_, err = s.Token(context.Background())
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt().IsZero())
}

func TestSession_OpaqueTokenKeptWithExpiryPolicy(t *testing.T) {
	as := newAuthServer(t)
	s := NewSession(as.URL, Credentials{Username: "alice", Password: "secret"}, SessionOptions{HonorTokenExpiry: true})

	_, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt().IsZero())
}

func TestSession_CurrentUser(t *testing.T) {
	as := newAuthServer(t)
	s := NewSession(as.URL, Credentials{Username: "alice", Password: "secret"}, SessionOptions{})

	user, err := s.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestStaticToken(t *testing.T) {
	token, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = StaticToken("").Token(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
}
