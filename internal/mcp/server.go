package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ycho/taiga-mcp-server/internal/config"
	"github.com/ycho/taiga-mcp-server/internal/taiga"
)

const (
	ServerName    = "taiga-mcp-server"
	ServerVersion = "1.0.0"

	// TokenHeader carries a pre-issued Taiga token on SSE connections
	TokenHeader = "X-Taiga-Token"
)

// Config holds MCP server configuration
type Config struct {
	Settings *config.Config
	SSEMode  bool
}

// Server wraps the MCP server
type Server struct {
	config  Config
	mcp     *server.MCPServer
	session *taiga.Session
	handler *ToolHandlers

	// connTokens maps an SSE session ID to the token its /sse request carried
	connTokens sync.Map
}

// NewServer creates a new MCP server with its own Taiga session
func NewServer(cfg Config) *Server {
	settings := cfg.Settings
	httpClient := &http.Client{Timeout: settings.RequestTimeout}

	session := taiga.NewSession(settings.APIURL, taiga.Credentials{
		Username: settings.Username,
		Password: settings.Password,
	}, taiga.SessionOptions{
		TokenTTL:         settings.TokenTTL,
		HonorTokenExpiry: settings.HonorTokenExpiry,
		HTTPClient:       httpClient,
	})

	handler := NewToolHandlers(session.Client(), session, Options{
		ReadOnly:       settings.ReadOnly,
		ExportDir:      settings.ExportDir,
		ClientOptions:  []taiga.ClientOption{taiga.WithHTTPClient(httpClient)},
		NetworkClients: cfg.SSEMode,
	})

	s := &Server{
		config:  cfg,
		session: session,
		handler: handler,
	}

	hooks := &server.Hooks{}
	hooks.AddOnRegisterSession(s.bindConnection)
	hooks.AddOnUnregisterSession(s.releaseConnection)

	s.mcp = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithHooks(hooks),
	)
	handler.RegisterTools(s.mcp)
	return s
}

// Run starts the MCP server and blocks until it stops
func (s *Server) Run(ctx context.Context) error {
	if s.config.SSEMode {
		if !s.config.Settings.SharedSessionEnabled() {
			slog.Info("SSE connections must send " + TokenHeader)
		}
		return s.runSSE(ctx)
	}

	if !s.config.Settings.HasCredentials() {
		slog.Warn("no Taiga credentials configured; call the authenticate tool")
	}

	slog.Info("Starting MCP server in stdio mode",
		"taiga_url", s.config.Settings.APIURL,
	)
	return server.ServeStdio(s.mcp)
}

// runSSE starts the server in SSE mode
func (s *Server) runSSE(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Settings.Port)

	slog.Info("Starting MCP server in SSE mode",
		"address", addr,
		"taiga_url", s.config.Settings.APIURL,
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.httpHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// httpHandler serves the SSE transport, /health and security headers
func (s *Server) httpHandler() http.Handler {
	sseServer := server.NewSSEServer(s.mcp,
		server.WithSSEContextFunc(s.connectionToken),
	)

	mux := http.NewServeMux()
	mux.Handle("/sse", s.requireAuth(sseServer))
	mux.Handle("/message", sseServer)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return securityHeadersMiddleware(mux)
}

// requireAuth rejects connections that bring no token unless the configured
// account is shared. The token rides on the request context until the
// session is registered.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(TokenHeader))
		if token == "" {
			if !s.config.Settings.SharedSessionEnabled() {
				http.Error(w, "Missing "+TokenHeader+" header", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withToken(r.Context(), token)))
	})
}

// bindConnection remembers the token of a newly opened SSE connection
func (s *Server) bindConnection(ctx context.Context, session server.ClientSession) {
	if token, ok := tokenFromContext(ctx); ok {
		s.connTokens.Store(session.SessionID(), token)
	}
}

func (s *Server) releaseConnection(_ context.Context, session server.ClientSession) {
	s.connTokens.Delete(session.SessionID())
}

// connectionToken runs for every /message post. Only the token bound at
// connect time counts; headers on the post itself are ignored.
func (s *Server) connectionToken(ctx context.Context, _ *http.Request) context.Context {
	session := server.ClientSessionFromContext(ctx)
	if session == nil {
		return ctx
	}
	if token, ok := s.connTokens.Load(session.SessionID()); ok {
		return withToken(ctx, token.(string))
	}
	return ctx
}

type tokenKey struct{}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// securityHeaders middleware adds security headers
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
