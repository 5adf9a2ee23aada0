package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ycho/taiga-mcp-server/internal/taiga"
)

// @title Taiga MCP Server API
// @version 1.0
// @description REST API for Taiga integration with AI assistants
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeTaigaError maps a client or resolver error onto an HTTP status
func writeTaigaError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var apiErr *taiga.APIError
	switch {
	case errors.Is(err, taiga.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, taiga.ErrAuthentication):
		status = http.StatusUnauthorized
	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		status = apiErr.StatusCode
	}
	writeError(w, status, err.Error())
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return id, true
}

// @Summary Get current user
// @Description Returns the Taiga user the request is authenticated as
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} taiga.User
// @Failure 401 {object} map[string]string
// @Router /me [get]
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	client := getClient(r.Context())
	user, err := client.GetMe(r.Context())
	if err != nil {
		writeTaigaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// @Summary List projects
// @Description Returns the projects visible to the user
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param member query int false "Only projects this user ID belongs to"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /projects [get]
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	client := getClient(r.Context())

	var member int
	if m := r.URL.Query().Get("member"); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, "member must be a user ID")
			return
		}
		member = n
	}

	projects, err := client.ListProjects(r.Context(), member)
	if err != nil {
		writeTaigaError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

// @Summary Get project
// @Description Get project details by ID or slug
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID or slug"
// @Success 200 {object} taiga.Project
// @Failure 404 {object} map[string]string
// @Router /projects/{id} [get]
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	client := getClient(r.Context())
	resolver := taiga.NewResolver(client)

	projectID, err := resolver.ResolveProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeTaigaError(w, err)
		return
	}

	project, err := client.GetProject(r.Context(), projectID)
	if err != nil {
		writeTaigaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// @Summary Search a project
// @Description Full-text search over user stories, tasks, issues, epics and wiki pages
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID or slug"
// @Param q query string true "Search text"
// @Success 200 {object} taiga.SearchResults
// @Failure 400 {object} map[string]string
// @Router /projects/{id}/search [get]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	client := getClient(r.Context())
	resolver := taiga.NewResolver(client)

	text := r.URL.Query().Get("q")
	if text == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	projectID, err := resolver.ResolveProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeTaigaError(w, err)
		return
	}

	results, err := client.Search(r.Context(), projectID, text)
	if err != nil {
		writeTaigaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// @Summary List user stories
// @Description List the user stories of a project
// @Tags User Stories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID or slug"
// @Param status query string false "Status name or ID"
// @Param milestone query string false "Milestone name or ID"
// @Param assigned_to query string false "Assignee username, ID or 'me'"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /projects/{id}/userstories [get]
func (s *Server) handleListUserStories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := getClient(ctx)
	resolver := taiga.NewResolver(client)

	projectID, err := resolver.ResolveProject(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeTaigaError(w, err)
		return
	}

	filter := taiga.ItemFilter{Project: projectID}
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		if filter.Status, err = resolver.ResolveStatus(ctx, taiga.KindUserStory, projectID, v); err != nil {
			writeTaigaError(w, err)
			return
		}
	}
	if v := q.Get("milestone"); v != "" {
		if filter.Milestone, err = resolver.ResolveMilestone(ctx, projectID, v); err != nil {
			writeTaigaError(w, err)
			return
		}
	}
	if v := q.Get("assigned_to"); v != "" {
		if filter.AssignedTo, err = resolver.ResolveUser(ctx, projectID, v); err != nil {
			writeTaigaError(w, err)
			return
		}
	}

	stories, err := client.ListUserStories(ctx, filter)
	if err != nil {
		writeTaigaError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userstories": stories,
		"count":       len(stories),
	})
}

// @Summary Create user story
// @Description Create a user story in a project; names are resolved within the project
// @Tags User Stories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID or slug"
// @Param request body object true "User story data"
// @Success 201 {object} taiga.UserStory
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /projects/{id}/userstories [post]
func (s *Server) handleCreateUserStory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := getClient(ctx)
	resolver := taiga.NewResolver(client)

	var req struct {
		Subject     string   `json:"subject"`
		Description string   `json:"description"`
		Status      string   `json:"status"`
		AssignedTo  string   `json:"assigned_to"`
		Milestone   string   `json:"milestone"`
		Tags        []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Subject == "" {
		writeError(w, http.StatusBadRequest, "subject is required")
		return
	}

	projectID, err := resolver.ResolveProject(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeTaigaError(w, err)
		return
	}

	params := taiga.CreateUserStoryParams{
		Project:     projectID,
		Subject:     req.Subject,
		Description: req.Description,
		Tags:        req.Tags,
	}
	if req.Status != "" {
		if params.Status, err = resolver.ResolveStatus(ctx, taiga.KindUserStory, projectID, req.Status); err != nil {
			writeTaigaError(w, err)
			return
		}
	}
	if req.AssignedTo != "" {
		if params.AssignedTo, err = resolver.ResolveUser(ctx, projectID, req.AssignedTo); err != nil {
			writeTaigaError(w, err)
			return
		}
	}
	if req.Milestone != "" {
		if params.Milestone, err = resolver.ResolveMilestone(ctx, projectID, req.Milestone); err != nil {
			writeTaigaError(w, err)
			return
		}
	}

	story, err := client.CreateUserStory(ctx, params)
	if err != nil {
		writeTaigaError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, story)
}

// @Summary Get user story
// @Description Get user story details
// @Tags User Stories
// @Produce json
// @Security BearerAuth
// @Param id path int true "User story ID"
// @Success 200 {object} taiga.UserStory
// @Failure 404 {object} map[string]string
// @Router /userstories/{id} [get]
func (s *Server) handleGetUserStory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	client := getClient(r.Context())
	story, err := client.GetUserStory(r.Context(), id)
	if err != nil {
		writeTaigaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

// @Summary Get milestone progress
// @Description Completion percentage and burndown statistics of a sprint
// @Tags Milestones
// @Produce json
// @Security BearerAuth
// @Param id path int true "Milestone ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /milestones/{id}/stats [get]
func (s *Server) handleMilestoneStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	client := getClient(r.Context())
	milestone, err := client.GetMilestone(r.Context(), id)
	if err != nil {
		writeTaigaError(w, err)
		return
	}
	stats, err := client.GetMilestoneStats(r.Context(), id)
	if err != nil {
		writeTaigaError(w, err)
		return
	}

	closed, total, pct := milestone.Completion()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                 milestone.ID,
		"name":               milestone.Name,
		"closed":             milestone.Closed,
		"closed_points":      closed,
		"total_points":       total,
		"completion_percent": pct,
		"stats":              stats,
	})
}
