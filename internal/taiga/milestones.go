package taiga

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
)

// CreateMilestoneParams are parameters for creating a milestone
type CreateMilestoneParams struct {
	Project         int     `json:"project"`
	Name            string  `json:"name"`
	EstimatedStart  string  `json:"estimated_start"`
	EstimatedFinish string  `json:"estimated_finish"`
	Disponibility   float64 `json:"disponibility,omitempty"`
}

// ListMilestones returns the milestones of a project, optionally only open or closed ones
func (c *Client) ListMilestones(ctx context.Context, projectID int, closed *bool) ([]Milestone, error) {
	query := url.Values{}
	query.Set("project", strconv.Itoa(projectID))
	if closed != nil {
		query.Set("closed", strconv.FormatBool(*closed))
	}
	return getJSON[[]Milestone](ctx, c, withQuery("/milestones", query))
}

// GetMilestone returns a milestone by ID
func (c *Client) GetMilestone(ctx context.Context, id int) (*Milestone, error) {
	m, err := getJSON[Milestone](ctx, c, fmt.Sprintf("/milestones/%d", id))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMilestone creates a new milestone
func (c *Client) CreateMilestone(ctx context.Context, params CreateMilestoneParams) (*Milestone, error) {
	m, err := sendJSON[Milestone](ctx, c, http.MethodPost, "/milestones", params)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMilestone applies a partial update to a milestone
func (c *Client) UpdateMilestone(ctx context.Context, id int, fields map[string]any) (*Milestone, error) {
	m, err := sendJSON[Milestone](ctx, c, http.MethodPatch, fmt.Sprintf("/milestones/%d", id), fields)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMilestone deletes a milestone
func (c *Client) DeleteMilestone(ctx context.Context, id int) error {
	return c.deleteResource(ctx, fmt.Sprintf("/milestones/%d", id))
}

// GetMilestoneStats returns the burndown statistics of a milestone
func (c *Client) GetMilestoneStats(ctx context.Context, id int) (*MilestoneStats, error) {
	s, err := getJSON[MilestoneStats](ctx, c, fmt.Sprintf("/milestones/%d/stats", id))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CompletionPercent is round(closed/total*100), and 0 for an empty sprint
func CompletionPercent(closed, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(closed / total * 100))
}

// Completion returns the milestone's closed and total points and the
// completion percentage derived from them.
func (m *Milestone) Completion() (closed, total float64, percent int) {
	if m.ClosedPoints != nil {
		closed = *m.ClosedPoints
	}
	if m.TotalPoints != nil {
		total = *m.TotalPoints
	}
	return closed, total, CompletionPercent(closed, total)
}
