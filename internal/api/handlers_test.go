package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ycho/taiga-mcp-server/internal/config"
)

func testConfig(apiURL string) *config.Config {
	cfg := config.Default()
	cfg.APIURL = apiURL
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

// mockTaiga serves the few Taiga endpoints the handlers touch
func mockTaiga(t *testing.T, logins *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
		if logins != nil {
			logins.Add(1)
		}
		_, _ = w.Write([]byte(`{"id": 1, "username": "bot", "full_name": "Bot", "auth_token": "session-token"}`))
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		_, _ = w.Write([]byte(`{"id": 1, "username": "` + token + `", "full_name": "Test User"}`))
	})
	mux.HandleFunc("GET /projects/by_slug", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") != "demo" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"_error_message": "No Project matches the given query."}`))
			return
		}
		_, _ = w.Write([]byte(`{"id": 7, "name": "Demo", "slug": "demo"}`))
	})
	mux.HandleFunc("GET /projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": ` + r.PathValue("id") + `, "name": "Demo", "slug": "demo"}`))
	})
	mux.HandleFunc("GET /userstories", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("project") != "7" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id": 101, "ref": 1, "subject": "Login", "project": 7}]`))
	})
	mux.HandleFunc("POST /userstories", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": 102, "ref": 2, "subject": body["subject"], "project": body["project"],
		})
	})
	mux.HandleFunc("GET /milestones/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 5, "name": "Sprint 1", "closed_points": 2, "total_points": 8}`))
	})
	mux.HandleFunc("GET /milestones/{id}/stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name": "Sprint 1", "total_userstories": 3, "completed_userstories": 1}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHealthCheck(t *testing.T) {
	server := NewServer(Config{Settings: testConfig("http://localhost")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	server := NewServer(Config{Settings: testConfig("http://localhost")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthMiddleware_BearerToken(t *testing.T) {
	upstream := mockTaiga(t, nil)
	server := NewServer(Config{Settings: testConfig(upstream.URL)})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer caller-token")
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var user map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if user["username"] != "caller-token" {
		t.Errorf("expected request to carry caller token, got %v", user["username"])
	}
}

func TestAuthMiddleware_ConfiguredSession(t *testing.T) {
	var logins atomic.Int32
	upstream := mockTaiga(t, &logins)
	cfg := testConfig(upstream.URL)
	cfg.Username = "bot"
	cfg.Password = "secret"
	cfg.ShareSession = true
	server := NewServer(Config{Settings: cfg})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected status %d, got %d: %s", i, http.StatusOK, w.Code, w.Body.String())
		}
	}

	if got := logins.Load(); got != 1 {
		t.Errorf("expected one login shared by all requests, got %d", got)
	}
}

func TestAuthMiddleware_SessionNotShared(t *testing.T) {
	var logins atomic.Int32
	upstream := mockTaiga(t, &logins)
	cfg := testConfig(upstream.URL)
	cfg.Username = "bot"
	cfg.Password = "secret"
	server := NewServer(Config{Settings: cfg})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/demo/userstories",
		strings.NewReader(`{"subject": "Anonymous"}`))
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	if got := logins.Load(); got != 0 {
		t.Errorf("expected no login with the configured account, got %d", got)
	}
}

func TestGetProject_BySlug(t *testing.T) {
	upstream := mockTaiga(t, nil)
	server := NewServer(Config{Settings: testConfig(upstream.URL)})

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/projects/demo", http.StatusOK},
		{"/api/v1/projects/7", http.StatusOK},
		{"/api/v1/projects/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", "Bearer t")
			w := httptest.NewRecorder()
			server.router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestUserStories(t *testing.T) {
	upstream := mockTaiga(t, nil)
	server := NewServer(Config{Settings: testConfig(upstream.URL)})

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/demo/userstories", nil)
		req.Header.Set("Authorization", "Bearer t")
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		var body struct {
			Count int `json:"count"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body.Count != 1 {
			t.Errorf("expected 1 user story, got %d", body.Count)
		}
	})

	t.Run("create", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/demo/userstories",
			strings.NewReader(`{"subject": "Test Story"}`))
		req.Header.Set("Authorization", "Bearer t")
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"subject":"Test Story"`) {
			t.Errorf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("create without subject", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/demo/userstories", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer t")
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/userstories/abc", nil)
		req.Header.Set("Authorization", "Bearer t")
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestCreateUserStory_ReadOnly(t *testing.T) {
	upstream := mockTaiga(t, nil)
	cfg := testConfig(upstream.URL)
	cfg.ReadOnly = true
	server := NewServer(Config{Settings: cfg})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/demo/userstories",
		strings.NewReader(`{"subject": "Test Story"}`))
	req.Header.Set("Authorization", "Bearer t")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestMilestoneStats(t *testing.T) {
	upstream := mockTaiga(t, nil)
	server := NewServer(Config{Settings: testConfig(upstream.URL)})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/milestones/5/stats", nil)
	req.Header.Set("Authorization", "Bearer t")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var body struct {
		Percent int `json:"completion_percent"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Percent != 25 {
		t.Errorf("expected 25%% completion, got %d", body.Percent)
	}
}

func TestSwaggerDocs(t *testing.T) {
	server := NewServer(Config{Settings: testConfig("http://localhost")})

	req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/yaml" {
		t.Errorf("expected Content-Type 'application/yaml', got '%s'", contentType)
	}
}
