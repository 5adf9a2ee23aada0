package taiga

import (
	"encoding/json"
	"fmt"
)

// User represents a Taiga user
type User struct {
	ID              int    `json:"id"`
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	FullNameDisplay string `json:"full_name_display"`
	Email           string `json:"email,omitempty"`
	Bio             string `json:"bio,omitempty"`
	IsActive        bool   `json:"is_active"`
}

// DisplayName returns the best available name for the user
func (u User) DisplayName() string {
	switch {
	case u.FullNameDisplay != "":
		return u.FullNameDisplay
	case u.FullName != "":
		return u.FullName
	default:
		return u.Username
	}
}

// UserRef is the compact user shape embedded in other resources
type UserRef struct {
	ID              int    `json:"id"`
	Username        string `json:"username"`
	FullNameDisplay string `json:"full_name_display"`
}

// StatusInfo is the status summary embedded in work items
type StatusInfo struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	IsClosed bool   `json:"is_closed"`
}

// Tags accepts both the ["name", ...] and [["name", "#color"], ...] shapes
// Taiga uses, and always marshals as plain names.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler
func (t *Tags) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	tags := make(Tags, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			tags = append(tags, name)
			continue
		}
		var pair []*string
		if err := json.Unmarshal(item, &pair); err != nil {
			return fmt.Errorf("invalid tag: %s", string(item))
		}
		if len(pair) > 0 && pair[0] != nil {
			tags = append(tags, *pair[0])
		}
	}
	*t = tags
	return nil
}

// Project represents a Taiga project
type Project struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Slug               string   `json:"slug"`
	Description        string   `json:"description"`
	IsPrivate          bool     `json:"is_private"`
	CreatedDate        string   `json:"created_date"`
	ModifiedDate       string   `json:"modified_date"`
	Owner              *UserRef `json:"owner,omitempty"`
	Members            []int    `json:"members,omitempty"`
	TotalMilestones    *int     `json:"total_milestones,omitempty"`
	TotalStoryPoints   *float64 `json:"total_story_points,omitempty"`
	IsBacklogActivated bool     `json:"is_backlog_activated"`
	IsKanbanActivated  bool     `json:"is_kanban_activated"`
	IsWikiActivated    bool     `json:"is_wiki_activated"`
	IsIssuesActivated  bool     `json:"is_issues_activated"`
	IsEpicsActivated   bool     `json:"is_epics_activated"`
	Tags               Tags     `json:"tags,omitempty"`
	Version            int      `json:"version,omitempty"`
}

// UserStory represents a Taiga user story
type UserStory struct {
	ID                  int         `json:"id"`
	Ref                 int         `json:"ref"`
	Version             int         `json:"version"`
	Subject             string      `json:"subject"`
	Description         string      `json:"description"`
	Project             int         `json:"project"`
	Status              int         `json:"status"`
	StatusExtraInfo     *StatusInfo `json:"status_extra_info,omitempty"`
	AssignedTo          *int        `json:"assigned_to"`
	AssignedToExtraInfo *UserRef    `json:"assigned_to_extra_info,omitempty"`
	Milestone           *int        `json:"milestone"`
	MilestoneName       string      `json:"milestone_name,omitempty"`
	IsClosed            bool        `json:"is_closed"`
	IsBlocked           bool        `json:"is_blocked"`
	BlockedNote         string      `json:"blocked_note,omitempty"`
	TotalPoints         *float64    `json:"total_points"`
	DueDate             string      `json:"due_date,omitempty"`
	Tags                Tags        `json:"tags"`
	CreatedDate         string      `json:"created_date"`
	ModifiedDate        string      `json:"modified_date"`
}

// UserStoryRef is the user story summary embedded in tasks
type UserStoryRef struct {
	ID      int    `json:"id"`
	Ref     int    `json:"ref"`
	Subject string `json:"subject"`
}

// Task represents a Taiga task
type Task struct {
	ID                  int           `json:"id"`
	Ref                 int           `json:"ref"`
	Version             int           `json:"version"`
	Subject             string        `json:"subject"`
	Description         string        `json:"description"`
	Project             int           `json:"project"`
	UserStory           *int          `json:"user_story"`
	UserStoryExtraInfo  *UserStoryRef `json:"user_story_extra_info,omitempty"`
	Status              int           `json:"status"`
	StatusExtraInfo     *StatusInfo   `json:"status_extra_info,omitempty"`
	AssignedTo          *int          `json:"assigned_to"`
	AssignedToExtraInfo *UserRef      `json:"assigned_to_extra_info,omitempty"`
	Milestone           *int          `json:"milestone"`
	IsClosed            bool          `json:"is_closed"`
	IsBlocked           bool          `json:"is_blocked"`
	DueDate             string        `json:"due_date,omitempty"`
	Tags                Tags          `json:"tags"`
	CreatedDate         string        `json:"created_date"`
	ModifiedDate        string        `json:"modified_date"`
}

// Issue represents a Taiga issue
type Issue struct {
	ID                  int         `json:"id"`
	Ref                 int         `json:"ref"`
	Version             int         `json:"version"`
	Subject             string      `json:"subject"`
	Description         string      `json:"description"`
	Project             int         `json:"project"`
	Status              int         `json:"status"`
	StatusExtraInfo     *StatusInfo `json:"status_extra_info,omitempty"`
	Type                int         `json:"type"`
	Priority            int         `json:"priority"`
	Severity            int         `json:"severity"`
	AssignedTo          *int        `json:"assigned_to"`
	AssignedToExtraInfo *UserRef    `json:"assigned_to_extra_info,omitempty"`
	Milestone           *int        `json:"milestone"`
	IsClosed            bool        `json:"is_closed"`
	IsBlocked           bool        `json:"is_blocked"`
	DueDate             string      `json:"due_date,omitempty"`
	Tags                Tags        `json:"tags"`
	CreatedDate         string      `json:"created_date"`
	ModifiedDate        string      `json:"modified_date"`
}

// Epic represents a Taiga epic
type Epic struct {
	ID                  int         `json:"id"`
	Ref                 int         `json:"ref"`
	Version             int         `json:"version"`
	Subject             string      `json:"subject"`
	Description         string      `json:"description"`
	Project             int         `json:"project"`
	Status              int         `json:"status"`
	StatusExtraInfo     *StatusInfo `json:"status_extra_info,omitempty"`
	Color               string      `json:"color"`
	AssignedTo          *int        `json:"assigned_to"`
	AssignedToExtraInfo *UserRef    `json:"assigned_to_extra_info,omitempty"`
	IsClosed            bool        `json:"is_closed"`
	IsBlocked           bool        `json:"is_blocked"`
	Tags                Tags        `json:"tags"`
	UserStoriesCounts   *struct {
		Total    int     `json:"total"`
		Progress float64 `json:"progress"`
	} `json:"user_stories_counts,omitempty"`
	CreatedDate  string `json:"created_date"`
	ModifiedDate string `json:"modified_date"`
}

// EpicRelatedUserStory links a user story to an epic
type EpicRelatedUserStory struct {
	Epic      int `json:"epic"`
	UserStory int `json:"user_story"`
	Order     int `json:"order"`
}

// Milestone represents a Taiga milestone (sprint)
type Milestone struct {
	ID              int         `json:"id"`
	Name            string      `json:"name"`
	Slug            string      `json:"slug"`
	Project         int         `json:"project"`
	EstimatedStart  string      `json:"estimated_start"`
	EstimatedFinish string      `json:"estimated_finish"`
	Closed          bool        `json:"closed"`
	Disponibility   float64     `json:"disponibility"`
	ClosedPoints    *float64    `json:"closed_points"`
	TotalPoints     *float64    `json:"total_points"`
	UserStories     []UserStory `json:"user_stories,omitempty"`
	CreatedDate     string      `json:"created_date"`
	ModifiedDate    string      `json:"modified_date"`
}

// MilestoneDay is one point of a sprint burndown
type MilestoneDay struct {
	Day           string   `json:"day"`
	Name          int      `json:"name"`
	OpenPoints    float64  `json:"open_points"`
	OptimalPoints *float64 `json:"optimal_points"`
}

// MilestoneStats is the body of /milestones/{id}/stats
type MilestoneStats struct {
	Name                 string         `json:"name"`
	EstimatedStart       string         `json:"estimated_start"`
	EstimatedFinish      string         `json:"estimated_finish"`
	TotalUserStories     int            `json:"total_userstories"`
	CompletedUserStories int            `json:"completed_userstories"`
	TotalTasks           int            `json:"total_tasks"`
	CompletedTasks       int            `json:"completed_tasks"`
	IocaineDoses         int            `json:"iocaine_doses"`
	Days                 []MilestoneDay `json:"days"`
}

// WikiPage represents a Taiga wiki page
type WikiPage struct {
	ID           int    `json:"id"`
	Slug         string `json:"slug"`
	Content      string `json:"content"`
	Project      int    `json:"project"`
	Version      int    `json:"version"`
	Owner        *int   `json:"owner"`
	LastModifier *int   `json:"last_modifier"`
	CreatedDate  string `json:"created_date"`
	ModifiedDate string `json:"modified_date"`
}

// Role represents a project role
type Role struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Project     int      `json:"project"`
	Computable  bool     `json:"computable"`
	Order       int      `json:"order"`
	Permissions []string `json:"permissions"`
}

// Membership represents a user's membership of a project
type Membership struct {
	ID        int    `json:"id"`
	User      *int   `json:"user"`
	Project   int    `json:"project"`
	Role      int    `json:"role"`
	RoleName  string `json:"role_name"`
	FullName  string `json:"full_name"`
	Username  string `json:"user_username,omitempty"`
	Email     string `json:"user_email,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
	IsOwner   bool   `json:"is_owner"`
	CreatedAt string `json:"created_at"`
}

// Attribute is a project-scoped lookup value: a status, issue type,
// priority or severity.
type Attribute struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	Color    string `json:"color"`
	Order    int    `json:"order"`
	IsClosed bool   `json:"is_closed"`
	Project  int    `json:"project"`
}

// SearchResults is the body of /search
type SearchResults struct {
	Count       int         `json:"count"`
	UserStories []UserStory `json:"userstories"`
	Tasks       []Task      `json:"tasks"`
	Issues      []Issue     `json:"issues"`
	Epics       []Epic      `json:"epics"`
	WikiPages   []WikiPage  `json:"wikipages"`
}

// ExportResult is the body of /exporter/{project}
type ExportResult struct {
	ExportID string `json:"export_id,omitempty"`
	URL      string `json:"url,omitempty"`
}

// HistoryEntry is one change record of a work item
type HistoryEntry struct {
	ID        string `json:"id"`
	User      struct {
		PK       int    `json:"pk"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"user"`
	CreatedAt  string                     `json:"created_at"`
	Type       int                        `json:"type"`
	Comment    string                     `json:"comment"`
	ValuesDiff map[string]json.RawMessage `json:"values_diff"`
}
