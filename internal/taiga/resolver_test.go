package taiga

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient serves handler and returns a client with a static token
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, StaticToken("test-token"))
}

func TestResolver_ResolveProject(t *testing.T) {
	var lookups atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/by_slug", func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		if r.URL.Query().Get("slug") == "alice-demo" {
			_, _ = w.Write([]byte(`{"id": 42, "name": "Demo", "slug": "alice-demo"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"_error_message": "No Project matches the given query."}`))
	})
	resolver := NewResolver(newTestClient(t, mux))

	tests := []struct {
		name        string
		input       string
		want        int
		wantErr     bool
		wantLookups int32
	}{
		{"numeric ID used unmodified", "1234", 1234, false, 0},
		{"numeric ID with spaces", " 7 ", 7, false, 0},
		{"zero is not looked up", "0", 0, false, 0},
		{"negative is not looked up", "-3", -3, false, 0},
		{"slug resolved once", "alice-demo", 42, false, 1},
		{"unknown slug", "nope", 0, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookups.Store(0)
			got, err := resolver.ResolveProject(context.Background(), tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNotFound))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.wantLookups, lookups.Load())
		})
	}
}

func TestResolver_ResolveProject_RemoteFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/by_slug", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"_error_message": "You do not have permission to perform this action."}`))
	})
	resolver := NewResolver(newTestClient(t, mux))

	_, err := resolver.ResolveProject(context.Background(), "secret-project")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestResolver_ResolveItemByRef(t *testing.T) {
	var lists atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /userstories", func(w http.ResponseWriter, r *http.Request) {
		lists.Add(1)
		assert.Equal(t, "42", r.URL.Query().Get("project"))
		assert.Equal(t, "True", r.Header.Get("x-disable-pagination"))
		_, _ = w.Write([]byte(`[{"id": 901, "ref": 1}, {"id": 902, "ref": 5}]`))
	})
	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 1001, "ref": 7}]`))
	})
	resolver := NewResolver(newTestClient(t, mux))
	ctx := context.Background()

	id, err := resolver.ResolveUserStory(ctx, 42, "#5")
	require.NoError(t, err)
	assert.Equal(t, 902, id)
	assert.Equal(t, int32(1), lists.Load())

	id, err = resolver.ResolveUserStory(ctx, 42, "905")
	require.NoError(t, err)
	assert.Equal(t, 905, id)
	assert.Equal(t, int32(1), lists.Load(), "numeric ID must not list")

	_, err = resolver.ResolveUserStory(ctx, 42, "#99")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "user story not found: #99")

	id, err = resolver.ResolveTask(ctx, 42, "#7")
	require.NoError(t, err)
	assert.Equal(t, 1001, id)

	_, err = resolver.ResolveTask(ctx, 0, "#7")
	assert.Error(t, err)

	_, err = resolver.ResolveTask(ctx, 42, "login-page")
	assert.Error(t, err)
}

func TestResolver_ResolveStatus(t *testing.T) {
	var loads atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /userstory-statuses", func(w http.ResponseWriter, r *http.Request) {
		loads.Add(1)
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "New", "slug": "new"},
			{"id": 2, "name": "In progress", "slug": "in-progress"},
			{"id": 3, "name": "Done", "slug": "done", "is_closed": true}
		]`))
	})
	resolver := NewResolver(newTestClient(t, mux))

	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"by ID", "2", 2, false},
		{"by name", "Done", 3, false},
		{"case insensitive", "in progress", 2, false},
		{"by slug", "in-progress", 2, false},
		{"no fuzzy match", "progress", 0, true},
		{"not found", "Archived", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.ResolveStatus(context.Background(), KindUserStory, 42, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, int32(1), loads.Load(), "statuses are loaded once")
}

func TestResolver_ResolveUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 7, "username": "alice"}`))
	})
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id": 7, "username": "alice", "full_name_display": "Alice Liddell"},
			{"id": 8, "username": "bob", "full_name_display": "Bob Builder"}
		]`))
	})
	resolver := NewResolver(newTestClient(t, mux))
	ctx := context.Background()

	id, err := resolver.ResolveUser(ctx, 42, "me")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	id, err = resolver.ResolveUser(ctx, 42, "bob builder")
	require.NoError(t, err)
	assert.Equal(t, 8, id)

	id, err = resolver.ResolveUser(ctx, 0, "11")
	require.NoError(t, err)
	assert.Equal(t, 11, id)

	_, err = resolver.ResolveUser(ctx, 0, "bob")
	assert.Error(t, err)

	_, err = resolver.ResolveUser(ctx, 42, "carol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolver_ResolveWikiPageAndMilestone(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wiki/by_slug", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") == "home" {
			_, _ = w.Write([]byte(`{"id": 55, "slug": "home"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /milestones", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 3, "name": "Sprint 1", "slug": "sprint-1"}]`))
	})
	resolver := NewResolver(newTestClient(t, mux))
	ctx := context.Background()

	id, err := resolver.ResolveWikiPage(ctx, 42, "home")
	require.NoError(t, err)
	assert.Equal(t, 55, id)

	_, err = resolver.ResolveWikiPage(ctx, 42, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	id, err = resolver.ResolveMilestone(ctx, 42, "sprint 1")
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	_, err = resolver.ResolveMilestone(ctx, 42, "Sprint 2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"#42", 42, true},
		{" #7 ", 7, true},
		{"42", 0, false},
		{"#", 0, false},
		{"#abc", 0, false},
		{"#-1", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRef(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}
