package mcp

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ycho/taiga-mcp-server/internal/taiga"
)

func TestFormatUserStory(t *testing.T) {
	us := &taiga.UserStory{
		ID:                  101,
		Ref:                 12,
		Version:             4,
		Subject:             "Login page",
		Description:         "As a user I want to log in",
		StatusExtraInfo:     &taiga.StatusInfo{Name: "Done", IsClosed: true},
		AssignedToExtraInfo: &taiga.UserRef{Username: "alice", FullNameDisplay: "Alice Liddell"},
		MilestoneName:       "Sprint 1",
		TotalPoints:         floatPtr(5),
		Tags:                taiga.Tags{"auth", "ui"},
		IsBlocked:           true,
		BlockedNote:         "waiting on design",
	}

	got := formatUserStory(us)
	for _, want := range []string{
		"User Story #12: Login page\n",
		"Status: Done (closed)\n",
		"Assigned to: Alice Liddell\n",
		"Milestone: Sprint 1\n",
		"Points: 5\n",
		"Blocked note: waiting on design\n",
		"ID: 101\n",
		"Tags: auth, ui\n",
		"Blocked: yes\n",
		"Version: 4\n",
		"\nAs a user I want to log in\n",
	} {
		assert.Contains(t, got, want)
	}
}

func TestFormatUserStory_EmptyOptionalFields(t *testing.T) {
	got := formatUserStory(&taiga.UserStory{ID: 1, Ref: 1, Subject: "Bare"})

	assert.Contains(t, got, "Status: -\n")
	assert.Contains(t, got, "Assigned to: Unassigned\n")
	assert.Contains(t, got, "Points: -\n")
	assert.NotContains(t, got, "Milestone:")
	assert.NotContains(t, got, "Tags:")
	assert.NotContains(t, got, "Blocked")
}

func TestListHeaders(t *testing.T) {
	assert.Equal(t, "No tasks found.", formatTaskList(nil))
	assert.True(t, strings.HasPrefix(formatTaskList([]taiga.Task{{ID: 1, Ref: 1, Subject: "a"}}), "Found 1 task:\n"))

	stories := []taiga.UserStory{{ID: 1, Ref: 1, Subject: "a"}, {ID: 2, Ref: 2, Subject: "b"}}
	got := formatUserStoryList(stories)
	assert.True(t, strings.HasPrefix(got, "Found 2 user stories:\n"))
	assert.Contains(t, got, "- #2 b (ID: 2, Status: -, Points: -)\n")
}

func TestFormatMilestone(t *testing.T) {
	m := &taiga.Milestone{
		ID:              5,
		Name:            "Sprint 1",
		EstimatedStart:  "2026-01-05",
		EstimatedFinish: "2026-01-19",
		ClosedPoints:    floatPtr(1),
		TotalPoints:     floatPtr(3),
		UserStories:     []taiga.UserStory{{ID: 101, Ref: 1, Subject: "Login"}},
	}

	got := formatMilestone(m)
	assert.Contains(t, got, "Points: 1/3 (33%)\n")
	assert.Contains(t, got, "Dates: 2026-01-05 - 2026-01-19\n")
	assert.Contains(t, got, "User stories (1):\n- #1 Login (ID: 101, Status: -)\n")

	list := formatMilestoneList([]taiga.Milestone{*m, {ID: 6, Name: "Empty", Closed: true}})
	assert.Contains(t, list, "- Sprint 1 (ID: 5, 2026-01-05 - 2026-01-19, open, 33%)\n")
	assert.Contains(t, list, "- Empty (ID: 6,  - , closed, 0%)\n")
}

func TestFormatHistory(t *testing.T) {
	entries := []taiga.HistoryEntry{{
		CreatedAt: "2026-01-06T10:00:00Z",
		Comment:   "Moved to review",
		ValuesDiff: map[string]json.RawMessage{
			"status":  json.RawMessage(`["In progress", "Ready for test"]`),
			"subject": json.RawMessage(`["old", "new"]`),
		},
	}}
	entries[0].User.Name = "Alice"

	got := formatHistory(taiga.KindTask, 9, entries)
	assert.Contains(t, got, "History of task 9 (1 entries):\n")
	assert.Contains(t, got, "- 2026-01-06T10:00:00Z by Alice, changed status, subject\n")
	assert.Contains(t, got, "  Moved to review\n")

	assert.Equal(t, "No history for user story 3.", formatHistory(taiga.KindUserStory, 3, nil))
}

func TestFormatMemberships(t *testing.T) {
	got := formatMemberships([]taiga.Membership{
		{ID: 1, FullName: "Alice", RoleName: "Product Owner", IsOwner: true},
		{ID: 2, Email: "bob@example.com", RoleName: "Back"},
	})
	assert.Contains(t, got, "- Alice: Product Owner (membership ID: 1, owner)\n")
	assert.Contains(t, got, "- bob@example.com (pending invitation): Back (membership ID: 2)\n")
}

func TestFormatAttributes(t *testing.T) {
	got := formatAttributes(taiga.AttrPriority, []taiga.Attribute{
		{ID: 1, Name: "Low"},
		{ID: 3, Name: "High"},
	})
	assert.Contains(t, got, "- Low (ID: 1)\n")
	assert.Contains(t, got, "- High (ID: 3)\n")
}
