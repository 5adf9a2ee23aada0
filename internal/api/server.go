package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"github.com/ycho/taiga-mcp-server/internal/config"
	"github.com/ycho/taiga-mcp-server/internal/taiga"

	_ "github.com/ycho/taiga-mcp-server/docs" // swagger docs
)

// Config holds API server configuration
type Config struct {
	Settings *config.Config
}

// Server is the REST API server
type Server struct {
	config  Config
	router  *chi.Mux
	session *taiga.Session // nil unless the configured account is shared
}

// NewServer creates a new API server
func NewServer(cfg Config) *Server {
	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
	}

	if cfg.Settings.SharedSessionEnabled() {
		s.session = taiga.NewSession(cfg.Settings.APIURL, taiga.Credentials{
			Username: cfg.Settings.Username,
			Password: cfg.Settings.Password,
		}, taiga.SessionOptions{
			TokenTTL:         cfg.Settings.TokenTTL,
			HonorTokenExpiry: cfg.Settings.HonorTokenExpiry,
			HTTPClient:       &http.Client{Timeout: cfg.Settings.RequestTimeout},
		})
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Swagger UI - uses swaggo generated docs
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// OpenAPI spec (static inline)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(openAPISpec))
	})

	// API routes with authentication middleware
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Account
		r.Get("/me", s.handleMe)

		// Projects
		r.Get("/projects", s.handleListProjects)
		r.Get("/projects/{id}", s.handleGetProject)
		r.Get("/projects/{id}/search", s.handleSearch)

		// User stories
		r.Get("/projects/{id}/userstories", s.handleListUserStories)
		r.With(s.writeGuard).Post("/projects/{id}/userstories", s.handleCreateUserStory)
		r.Get("/userstories/{id}", s.handleGetUserStory)

		// Milestones
		r.Get("/milestones/{id}/stats", s.handleMilestoneStats)
	})
}

// authMiddleware picks the Taiga client for the request: the caller's bearer
// token when present, the configured session when sharing is enabled.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var client *taiga.Client
		if token, ok := bearerToken(r); ok {
			client = taiga.NewClient(s.config.Settings.APIURL, taiga.StaticToken(token),
				taiga.WithTimeout(s.config.Settings.RequestTimeout))
		} else if s.session != nil {
			client = s.session.Client()
		} else {
			writeError(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}

		ctx := withClient(r.Context(), client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeGuard rejects writes in read-only mode
func (s *Server) writeGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.Settings.ReadOnly {
			writeError(w, http.StatusForbidden, "server is in read-only mode - write operations are disabled")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Run starts the API server and blocks until ctx is done or it fails
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Settings.Port)

	slog.Info("Starting REST API server",
		"address", addr,
		"taiga_url", s.config.Settings.APIURL,
		"docs", fmt.Sprintf("http://localhost:%d/docs/index.html", s.config.Settings.Port),
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
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

const openAPISpec = `openapi: 3.0.3
info:
  title: Taiga MCP Server API
  description: REST API for Taiga integration with AI assistants
  version: 1.0.0
servers:
  - url: /api/v1
security:
  - BearerAuth: []
components:
  securitySchemes:
    BearerAuth:
      type: http
      scheme: bearer
      description: Taiga auth token. Optional when the server has configured credentials.
  schemas:
    Error:
      type: object
      properties:
        error:
          type: string
paths:
  /me:
    get:
      summary: Get current user information
      tags: [Account]
      responses:
        '200':
          description: Current user
  /projects:
    get:
      summary: List projects
      tags: [Projects]
      parameters:
        - name: member
          in: query
          schema:
            type: integer
          description: Only projects this user ID belongs to
      responses:
        '200':
          description: List of projects
  /projects/{id}:
    get:
      summary: Get project details
      tags: [Projects]
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
          description: Project ID or slug
      responses:
        '200':
          description: Project details
        '404':
          description: Unknown project
  /projects/{id}/search:
    get:
      summary: Search a project
      tags: [Projects]
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
          description: Project ID or slug
        - name: q
          in: query
          required: true
          schema:
            type: string
      responses:
        '200':
          description: Matching user stories, tasks, issues, epics and wiki pages
  /projects/{id}/userstories:
    get:
      summary: List user stories
      tags: [User Stories]
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
          description: Project ID or slug
        - name: status
          in: query
          schema:
            type: string
          description: Status name or ID
        - name: milestone
          in: query
          schema:
            type: string
          description: Milestone name or ID
        - name: assigned_to
          in: query
          schema:
            type: string
          description: "Assignee username, ID or 'me'"
      responses:
        '200':
          description: List of user stories
    post:
      summary: Create a user story
      tags: [User Stories]
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
          description: Project ID or slug
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [subject]
              properties:
                subject:
                  type: string
                description:
                  type: string
                status:
                  type: string
                  description: Status name or ID
                assigned_to:
                  type: string
                  description: Assignee username or ID
                milestone:
                  type: string
                  description: Milestone name or ID
                tags:
                  type: array
                  items:
                    type: string
      responses:
        '201':
          description: Created user story
        '403':
          description: Server is read-only
  /userstories/{id}:
    get:
      summary: Get user story details
      tags: [User Stories]
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
      responses:
        '200':
          description: User story
  /milestones/{id}/stats:
    get:
      summary: Get milestone progress
      tags: [Milestones]
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
      responses:
        '200':
          description: Completion percentage and burndown statistics
`
