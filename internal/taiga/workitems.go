package taiga

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ItemKind identifies one of the referenceable work item collections
type ItemKind string

const (
	KindUserStory ItemKind = "userstory"
	KindTask      ItemKind = "task"
	KindIssue     ItemKind = "issue"
	KindEpic      ItemKind = "epic"
)

// ParseItemKind accepts the singular, plural and spaced spellings of a kind
func ParseItemKind(s string) (ItemKind, error) {
	switch s {
	case "userstory", "userstories", "user_story", "user_stories", "user story", "story":
		return KindUserStory, nil
	case "task", "tasks":
		return KindTask, nil
	case "issue", "issues":
		return KindIssue, nil
	case "epic", "epics":
		return KindEpic, nil
	}
	return "", fmt.Errorf("unknown item kind %q (expected userstory, task, issue or epic)", s)
}

// Collection is the REST collection path for the kind
func (k ItemKind) Collection() string {
	switch k {
	case KindUserStory:
		return "/userstories"
	case KindTask:
		return "/tasks"
	case KindIssue:
		return "/issues"
	case KindEpic:
		return "/epics"
	}
	return ""
}

// StatusCollection is the path of the kind's status lookup collection
func (k ItemKind) StatusCollection() string {
	return "/" + string(k) + "-statuses"
}

// Label is the human name of the kind
func (k ItemKind) Label() string {
	if k == KindUserStory {
		return "user story"
	}
	return string(k)
}

// ItemFilter narrows a work item list; zero values are not sent
type ItemFilter struct {
	Project    int
	Status     int
	AssignedTo int
	Milestone  int
	UserStory  int
	Epic       int
	// Backlog selects items without a milestone
	Backlog bool
}

func (f ItemFilter) query() url.Values {
	query := url.Values{}
	set := func(key string, v int) {
		if v > 0 {
			query.Set(key, strconv.Itoa(v))
		}
	}
	set("project", f.Project)
	set("status", f.Status)
	set("assigned_to", f.AssignedTo)
	set("milestone", f.Milestone)
	set("user_story", f.UserStory)
	set("epic", f.Epic)
	if f.Backlog {
		query.Set("milestone__isnull", "true")
	}
	return query
}

// --- User stories ---

// CreateUserStoryParams are parameters for creating a user story
type CreateUserStoryParams struct {
	Project     int    `json:"project"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	Status      int    `json:"status,omitempty"`
	AssignedTo  int    `json:"assigned_to,omitempty"`
	Milestone   int    `json:"milestone,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Tags        Tags   `json:"tags,omitempty"`
}

// ListUserStories returns user stories matching the filter
func (c *Client) ListUserStories(ctx context.Context, filter ItemFilter) ([]UserStory, error) {
	return getJSON[[]UserStory](ctx, c, withQuery("/userstories", filter.query()))
}

// GetUserStory returns a user story by ID
func (c *Client) GetUserStory(ctx context.Context, id int) (*UserStory, error) {
	us, err := getJSON[UserStory](ctx, c, fmt.Sprintf("/userstories/%d", id))
	if err != nil {
		return nil, err
	}
	return &us, nil
}

// CreateUserStory creates a new user story
func (c *Client) CreateUserStory(ctx context.Context, params CreateUserStoryParams) (*UserStory, error) {
	us, err := sendJSON[UserStory](ctx, c, http.MethodPost, "/userstories", params)
	if err != nil {
		return nil, err
	}
	return &us, nil
}

// UpdateUserStory applies a partial update to a user story
func (c *Client) UpdateUserStory(ctx context.Context, id int, fields map[string]any) (*UserStory, error) {
	us, err := patchVersioned[UserStory](ctx, c, fmt.Sprintf("/userstories/%d", id), fields)
	if err != nil {
		return nil, err
	}
	return &us, nil
}

// DeleteUserStory deletes a user story
func (c *Client) DeleteUserStory(ctx context.Context, id int) error {
	return c.deleteResource(ctx, fmt.Sprintf("/userstories/%d", id))
}

// --- Tasks ---

// CreateTaskParams are parameters for creating a task
type CreateTaskParams struct {
	Project     int    `json:"project"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	UserStory   int    `json:"user_story,omitempty"`
	Status      int    `json:"status,omitempty"`
	AssignedTo  int    `json:"assigned_to,omitempty"`
	Milestone   int    `json:"milestone,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Tags        Tags   `json:"tags,omitempty"`
}

// ListTasks returns tasks matching the filter
func (c *Client) ListTasks(ctx context.Context, filter ItemFilter) ([]Task, error) {
	return getJSON[[]Task](ctx, c, withQuery("/tasks", filter.query()))
}

// GetTask returns a task by ID
func (c *Client) GetTask(ctx context.Context, id int) (*Task, error) {
	t, err := getJSON[Task](ctx, c, fmt.Sprintf("/tasks/%d", id))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates a new task
func (c *Client) CreateTask(ctx context.Context, params CreateTaskParams) (*Task, error) {
	t, err := sendJSON[Task](ctx, c, http.MethodPost, "/tasks", params)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies a partial update to a task
func (c *Client) UpdateTask(ctx context.Context, id int, fields map[string]any) (*Task, error) {
	t, err := patchVersioned[Task](ctx, c, fmt.Sprintf("/tasks/%d", id), fields)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask deletes a task
func (c *Client) DeleteTask(ctx context.Context, id int) error {
	return c.deleteResource(ctx, fmt.Sprintf("/tasks/%d", id))
}

// --- Issues ---

// CreateIssueParams are parameters for creating an issue
type CreateIssueParams struct {
	Project     int    `json:"project"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	Status      int    `json:"status,omitempty"`
	Type        int    `json:"type,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	Severity    int    `json:"severity,omitempty"`
	AssignedTo  int    `json:"assigned_to,omitempty"`
	Milestone   int    `json:"milestone,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Tags        Tags   `json:"tags,omitempty"`
}

// ListIssues returns issues matching the filter
func (c *Client) ListIssues(ctx context.Context, filter ItemFilter) ([]Issue, error) {
	return getJSON[[]Issue](ctx, c, withQuery("/issues", filter.query()))
}

// GetIssue returns an issue by ID
func (c *Client) GetIssue(ctx context.Context, id int) (*Issue, error) {
	is, err := getJSON[Issue](ctx, c, fmt.Sprintf("/issues/%d", id))
	if err != nil {
		return nil, err
	}
	return &is, nil
}

// CreateIssue creates a new issue
func (c *Client) CreateIssue(ctx context.Context, params CreateIssueParams) (*Issue, error) {
	is, err := sendJSON[Issue](ctx, c, http.MethodPost, "/issues", params)
	if err != nil {
		return nil, err
	}
	return &is, nil
}

// UpdateIssue applies a partial update to an issue
func (c *Client) UpdateIssue(ctx context.Context, id int, fields map[string]any) (*Issue, error) {
	is, err := patchVersioned[Issue](ctx, c, fmt.Sprintf("/issues/%d", id), fields)
	if err != nil {
		return nil, err
	}
	return &is, nil
}

// DeleteIssue deletes an issue
func (c *Client) DeleteIssue(ctx context.Context, id int) error {
	return c.deleteResource(ctx, fmt.Sprintf("/issues/%d", id))
}

// --- Epics ---

// CreateEpicParams are parameters for creating an epic
type CreateEpicParams struct {
	Project     int    `json:"project"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	Status      int    `json:"status,omitempty"`
	Color       string `json:"color,omitempty"`
	AssignedTo  int    `json:"assigned_to,omitempty"`
	Tags        Tags   `json:"tags,omitempty"`
}

// ListEpics returns epics matching the filter
func (c *Client) ListEpics(ctx context.Context, filter ItemFilter) ([]Epic, error) {
	return getJSON[[]Epic](ctx, c, withQuery("/epics", filter.query()))
}

// GetEpic returns an epic by ID
func (c *Client) GetEpic(ctx context.Context, id int) (*Epic, error) {
	e, err := getJSON[Epic](ctx, c, fmt.Sprintf("/epics/%d", id))
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEpic creates a new epic
func (c *Client) CreateEpic(ctx context.Context, params CreateEpicParams) (*Epic, error) {
	e, err := sendJSON[Epic](ctx, c, http.MethodPost, "/epics", params)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEpic applies a partial update to an epic
func (c *Client) UpdateEpic(ctx context.Context, id int, fields map[string]any) (*Epic, error) {
	e, err := patchVersioned[Epic](ctx, c, fmt.Sprintf("/epics/%d", id), fields)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteEpic deletes an epic
func (c *Client) DeleteEpic(ctx context.Context, id int) error {
	return c.deleteResource(ctx, fmt.Sprintf("/epics/%d", id))
}

// ListEpicUserStories returns the user stories linked to an epic
func (c *Client) ListEpicUserStories(ctx context.Context, epicID int) ([]EpicRelatedUserStory, error) {
	return getJSON[[]EpicRelatedUserStory](ctx, c, fmt.Sprintf("/epics/%d/related_userstories", epicID))
}

// LinkUserStoryToEpic links a user story to an epic
func (c *Client) LinkUserStoryToEpic(ctx context.Context, epicID, userStoryID int) (*EpicRelatedUserStory, error) {
	body := map[string]int{"epic": epicID, "user_story": userStoryID}
	rel, err := sendJSON[EpicRelatedUserStory](ctx, c, http.MethodPost, fmt.Sprintf("/epics/%d/related_userstories", epicID), body)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// --- Comments and history ---

// AddComment posts a comment on a work item through a versioned update
func (c *Client) AddComment(ctx context.Context, kind ItemKind, id int, comment string) error {
	path := fmt.Sprintf("%s/%d", kind.Collection(), id)
	_, err := patchVersioned[versionInfo](ctx, c, path, map[string]any{"comment": comment})
	return err
}

// GetHistory returns the change history of a work item
func (c *Client) GetHistory(ctx context.Context, kind ItemKind, id int) ([]HistoryEntry, error) {
	return getJSON[[]HistoryEntry](ctx, c, fmt.Sprintf("/history/%s/%d", kind, id))
}

// ItemProject returns the project a work item belongs to
func (c *Client) ItemProject(ctx context.Context, kind ItemKind, id int) (int, error) {
	item, err := getJSON[struct {
		Project int `json:"project"`
	}](ctx, c, fmt.Sprintf("%s/%d", kind.Collection(), id))
	if err != nil {
		return 0, err
	}
	return item.Project, nil
}

// refEntry is the shape shared by every referenceable item in list responses
type refEntry struct {
	ID  int `json:"id"`
	Ref int `json:"ref"`
}

// listRefs returns the ID/ref pairs of one kind in a project, across all pages
func (c *Client) listRefs(ctx context.Context, kind ItemKind, projectID int) ([]refEntry, error) {
	return getAllJSON[[]refEntry](ctx, c, withQuery(kind.Collection(), ItemFilter{Project: projectID}.query()))
}
