package taiga

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListProjects returns projects, restricted to those memberID belongs to when non-zero
func (c *Client) ListProjects(ctx context.Context, memberID int) ([]Project, error) {
	query := url.Values{}
	if memberID > 0 {
		query.Set("member", strconv.Itoa(memberID))
	}
	return getJSON[[]Project](ctx, c, withQuery("/projects", query))
}

// GetProject returns a project by ID
func (c *Client) GetProject(ctx context.Context, projectID int) (*Project, error) {
	p, err := getJSON[Project](ctx, c, fmt.Sprintf("/projects/%d", projectID))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProjectBySlug returns a project by its slug
func (c *Client) GetProjectBySlug(ctx context.Context, slug string) (*Project, error) {
	query := url.Values{}
	query.Set("slug", slug)
	p, err := getJSON[Project](ctx, c, withQuery("/projects/by_slug", query))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProjectParams are parameters for creating a project
type CreateProjectParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
	Tags        Tags   `json:"tags,omitempty"`
}

// CreateProject creates a new project
func (c *Client) CreateProject(ctx context.Context, params CreateProjectParams) (*Project, error) {
	p, err := sendJSON[Project](ctx, c, http.MethodPost, "/projects", params)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProject applies a partial update to a project
func (c *Client) UpdateProject(ctx context.Context, projectID int, fields map[string]any) (*Project, error) {
	p, err := sendJSON[Project](ctx, c, http.MethodPatch, fmt.Sprintf("/projects/%d", projectID), fields)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject deletes a project
func (c *Client) DeleteProject(ctx context.Context, projectID int) error {
	return c.deleteResource(ctx, fmt.Sprintf("/projects/%d", projectID))
}

// ExportProject starts a project export. Taiga answers with either a
// download URL or an export ID for an asynchronous export.
func (c *Client) ExportProject(ctx context.Context, projectID int) (*ExportResult, error) {
	res, err := getJSON[ExportResult](ctx, c, fmt.Sprintf("/exporter/%d", projectID))
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Search runs a full-text search inside a project
func (c *Client) Search(ctx context.Context, projectID int, text string) (*SearchResults, error) {
	query := url.Values{}
	query.Set("project", strconv.Itoa(projectID))
	query.Set("text", text)
	res, err := getJSON[SearchResults](ctx, c, withQuery("/search", query))
	if err != nil {
		return nil, err
	}
	return &res, nil
}
