package taiga

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func projectQuery(projectID int) url.Values {
	query := url.Values{}
	query.Set("project", strconv.Itoa(projectID))
	return query
}

// GetMe returns the user the token belongs to
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	u, err := getJSON[User](ctx, c, "/users/me")
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser returns a user by ID
func (c *Client) GetUser(ctx context.Context, id int) (*User, error) {
	u, err := getJSON[User](ctx, c, fmt.Sprintf("/users/%d", id))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListProjectUsers returns the users of a project
func (c *Client) ListProjectUsers(ctx context.Context, projectID int) ([]User, error) {
	return getJSON[[]User](ctx, c, withQuery("/users", projectQuery(projectID)))
}

// ListRoles returns the roles of a project
func (c *Client) ListRoles(ctx context.Context, projectID int) ([]Role, error) {
	return getJSON[[]Role](ctx, c, withQuery("/roles", projectQuery(projectID)))
}

// ListMemberships returns the memberships of a project
func (c *Client) ListMemberships(ctx context.Context, projectID int) ([]Membership, error) {
	return getJSON[[]Membership](ctx, c, withQuery("/memberships", projectQuery(projectID)))
}

// InviteMember invites a username or email to a project with a role
func (c *Client) InviteMember(ctx context.Context, projectID, roleID int, usernameOrEmail string) (*Membership, error) {
	body := map[string]any{
		"project":  projectID,
		"role":     roleID,
		"username": usernameOrEmail,
	}
	m, err := sendJSON[Membership](ctx, c, http.MethodPost, "/memberships", body)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMembership removes a membership
func (c *Client) DeleteMembership(ctx context.Context, id int) error {
	return c.deleteResource(ctx, fmt.Sprintf("/memberships/%d", id))
}

// AttributeKind names a project-scoped lookup collection
type AttributeKind string

const (
	AttrUserStoryStatus AttributeKind = "userstory-statuses"
	AttrTaskStatus      AttributeKind = "task-statuses"
	AttrIssueStatus     AttributeKind = "issue-statuses"
	AttrEpicStatus      AttributeKind = "epic-statuses"
	AttrIssueType       AttributeKind = "issue-types"
	AttrPriority        AttributeKind = "priorities"
	AttrSeverity        AttributeKind = "severities"
)

// Label is the singular human name of one value of the kind
func (k AttributeKind) Label() string {
	switch k {
	case AttrUserStoryStatus:
		return "user story status"
	case AttrTaskStatus:
		return "task status"
	case AttrIssueStatus:
		return "issue status"
	case AttrEpicStatus:
		return "epic status"
	case AttrIssueType:
		return "issue type"
	case AttrPriority:
		return "priority"
	case AttrSeverity:
		return "severity"
	}
	return string(k)
}

// StatusAttribute returns the status lookup kind of a work item kind
func StatusAttribute(kind ItemKind) AttributeKind {
	return AttributeKind(kind.StatusCollection()[1:])
}

// ListAttributes returns the values of a lookup collection for a project
func (c *Client) ListAttributes(ctx context.Context, kind AttributeKind, projectID int) ([]Attribute, error) {
	return getJSON[[]Attribute](ctx, c, withQuery("/"+string(kind), projectQuery(projectID)))
}
