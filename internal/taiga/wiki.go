package taiga

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListWikiPages returns the wiki pages of a project
func (c *Client) ListWikiPages(ctx context.Context, projectID int) ([]WikiPage, error) {
	query := url.Values{}
	query.Set("project", strconv.Itoa(projectID))
	return getJSON[[]WikiPage](ctx, c, withQuery("/wiki", query))
}

// GetWikiPage returns a wiki page by ID
func (c *Client) GetWikiPage(ctx context.Context, id int) (*WikiPage, error) {
	p, err := getJSON[WikiPage](ctx, c, fmt.Sprintf("/wiki/%d", id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetWikiPageBySlug returns a wiki page by its slug within a project
func (c *Client) GetWikiPageBySlug(ctx context.Context, projectID int, slug string) (*WikiPage, error) {
	query := url.Values{}
	query.Set("project", strconv.Itoa(projectID))
	query.Set("slug", slug)
	p, err := getJSON[WikiPage](ctx, c, withQuery("/wiki/by_slug", query))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateWikiPage creates a wiki page
func (c *Client) CreateWikiPage(ctx context.Context, projectID int, slug, content string) (*WikiPage, error) {
	body := map[string]any{
		"project": projectID,
		"slug":    slug,
		"content": content,
	}
	p, err := sendJSON[WikiPage](ctx, c, http.MethodPost, "/wiki", body)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateWikiPage replaces the content of a wiki page
func (c *Client) UpdateWikiPage(ctx context.Context, id int, content string) (*WikiPage, error) {
	p, err := patchVersioned[WikiPage](ctx, c, fmt.Sprintf("/wiki/%d", id), map[string]any{"content": content})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteWikiPage deletes a wiki page
func (c *Client) DeleteWikiPage(ctx context.Context, id int) error {
	return c.deleteResource(ctx, fmt.Sprintf("/wiki/%d", id))
}
