package mcp

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ycho/taiga-mcp-server/internal/taiga"
)

func statusName(info *taiga.StatusInfo) string {
	if info == nil || info.Name == "" {
		return "-"
	}
	if info.IsClosed {
		return info.Name + " (closed)"
	}
	return info.Name
}

func assigneeName(ref *taiga.UserRef) string {
	if ref == nil {
		return "Unassigned"
	}
	if ref.FullNameDisplay != "" {
		return ref.FullNameDisplay
	}
	return ref.Username
}

func points(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *p)
}

// writeCommon writes the fields every work item shares
func writeCommon(b *strings.Builder, id, version int, tags taiga.Tags, blocked bool, created, modified, description string) {
	fmt.Fprintf(b, "ID: %d\n", id)
	if len(tags) > 0 {
		fmt.Fprintf(b, "Tags: %s\n", strings.Join(tags, ", "))
	}
	if blocked {
		b.WriteString("Blocked: yes\n")
	}
	fmt.Fprintf(b, "Version: %d\n", version)
	if created != "" {
		fmt.Fprintf(b, "Created: %s\n", created)
	}
	if modified != "" {
		fmt.Fprintf(b, "Modified: %s\n", modified)
	}
	if description != "" {
		fmt.Fprintf(b, "\n%s\n", description)
	}
}

func listHeader(b *strings.Builder, n int, one, many string) bool {
	switch n {
	case 0:
		fmt.Fprintf(b, "No %s found.", many)
		return false
	case 1:
		fmt.Fprintf(b, "Found 1 %s:\n", one)
	default:
		fmt.Fprintf(b, "Found %d %s:\n", n, many)
	}
	return true
}

func formatUser(u *taiga.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User: %s\n", u.DisplayName())
	fmt.Fprintf(&b, "ID: %d\n", u.ID)
	fmt.Fprintf(&b, "Username: %s\n", u.Username)
	if u.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", u.Email)
	}
	return b.String()
}

func formatProject(p *taiga.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", p.Name)
	fmt.Fprintf(&b, "ID: %d\n", p.ID)
	fmt.Fprintf(&b, "Slug: %s\n", p.Slug)
	fmt.Fprintf(&b, "Private: %t\n", p.IsPrivate)
	if p.Owner != nil {
		fmt.Fprintf(&b, "Owner: %s\n", assigneeName(p.Owner))
	}
	if len(p.Members) > 0 {
		fmt.Fprintf(&b, "Members: %d\n", len(p.Members))
	}
	if p.TotalMilestones != nil {
		fmt.Fprintf(&b, "Milestones: %d\n", *p.TotalMilestones)
	}
	if p.TotalStoryPoints != nil {
		fmt.Fprintf(&b, "Story points: %g\n", *p.TotalStoryPoints)
	}

	var modules []string
	for _, m := range []struct {
		name string
		on   bool
	}{
		{"backlog", p.IsBacklogActivated},
		{"kanban", p.IsKanbanActivated},
		{"issues", p.IsIssuesActivated},
		{"epics", p.IsEpicsActivated},
		{"wiki", p.IsWikiActivated},
	} {
		if m.on {
			modules = append(modules, m.name)
		}
	}
	if len(modules) > 0 {
		fmt.Fprintf(&b, "Modules: %s\n", strings.Join(modules, ", "))
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Description)
	}
	return b.String()
}

func formatProjectList(projects []taiga.Project) string {
	var b strings.Builder
	if !listHeader(&b, len(projects), "project", "projects") {
		return b.String()
	}
	for _, p := range projects {
		fmt.Fprintf(&b, "- %s (ID: %d, slug: %s)\n", p.Name, p.ID, p.Slug)
	}
	return b.String()
}

func formatUserStory(us *taiga.UserStory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Story #%d: %s\n", us.Ref, us.Subject)
	fmt.Fprintf(&b, "Status: %s\n", statusName(us.StatusExtraInfo))
	fmt.Fprintf(&b, "Assigned to: %s\n", assigneeName(us.AssignedToExtraInfo))
	if us.MilestoneName != "" {
		fmt.Fprintf(&b, "Milestone: %s\n", us.MilestoneName)
	}
	fmt.Fprintf(&b, "Points: %s\n", points(us.TotalPoints))
	if us.DueDate != "" {
		fmt.Fprintf(&b, "Due: %s\n", us.DueDate)
	}
	if us.BlockedNote != "" {
		fmt.Fprintf(&b, "Blocked note: %s\n", us.BlockedNote)
	}
	writeCommon(&b, us.ID, us.Version, us.Tags, us.IsBlocked, us.CreatedDate, us.ModifiedDate, us.Description)
	return b.String()
}

func formatUserStoryList(stories []taiga.UserStory) string {
	var b strings.Builder
	if !listHeader(&b, len(stories), "user story", "user stories") {
		return b.String()
	}
	for _, us := range stories {
		fmt.Fprintf(&b, "- #%d %s (ID: %d, Status: %s, Points: %s)\n",
			us.Ref, us.Subject, us.ID, statusName(us.StatusExtraInfo), points(us.TotalPoints))
	}
	return b.String()
}

func formatTask(t *taiga.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task #%d: %s\n", t.Ref, t.Subject)
	fmt.Fprintf(&b, "Status: %s\n", statusName(t.StatusExtraInfo))
	fmt.Fprintf(&b, "Assigned to: %s\n", assigneeName(t.AssignedToExtraInfo))
	if us := t.UserStoryExtraInfo; us != nil {
		fmt.Fprintf(&b, "User story: #%d %s\n", us.Ref, us.Subject)
	}
	if t.DueDate != "" {
		fmt.Fprintf(&b, "Due: %s\n", t.DueDate)
	}
	writeCommon(&b, t.ID, t.Version, t.Tags, t.IsBlocked, t.CreatedDate, t.ModifiedDate, t.Description)
	return b.String()
}

func formatTaskList(tasks []taiga.Task) string {
	var b strings.Builder
	if !listHeader(&b, len(tasks), "task", "tasks") {
		return b.String()
	}
	for _, t := range tasks {
		fmt.Fprintf(&b, "- #%d %s (ID: %d, Status: %s, Assigned: %s)\n",
			t.Ref, t.Subject, t.ID, statusName(t.StatusExtraInfo), assigneeName(t.AssignedToExtraInfo))
	}
	return b.String()
}

func formatIssue(is *taiga.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issue #%d: %s\n", is.Ref, is.Subject)
	fmt.Fprintf(&b, "Status: %s\n", statusName(is.StatusExtraInfo))
	fmt.Fprintf(&b, "Assigned to: %s\n", assigneeName(is.AssignedToExtraInfo))
	fmt.Fprintf(&b, "Type: %d, Priority: %d, Severity: %d\n", is.Type, is.Priority, is.Severity)
	if is.DueDate != "" {
		fmt.Fprintf(&b, "Due: %s\n", is.DueDate)
	}
	writeCommon(&b, is.ID, is.Version, is.Tags, is.IsBlocked, is.CreatedDate, is.ModifiedDate, is.Description)
	return b.String()
}

func formatIssueList(issues []taiga.Issue) string {
	var b strings.Builder
	if !listHeader(&b, len(issues), "issue", "issues") {
		return b.String()
	}
	for _, is := range issues {
		fmt.Fprintf(&b, "- #%d %s (ID: %d, Status: %s, Assigned: %s)\n",
			is.Ref, is.Subject, is.ID, statusName(is.StatusExtraInfo), assigneeName(is.AssignedToExtraInfo))
	}
	return b.String()
}

func formatEpic(e *taiga.Epic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Epic #%d: %s\n", e.Ref, e.Subject)
	fmt.Fprintf(&b, "Status: %s\n", statusName(e.StatusExtraInfo))
	fmt.Fprintf(&b, "Assigned to: %s\n", assigneeName(e.AssignedToExtraInfo))
	if e.Color != "" {
		fmt.Fprintf(&b, "Color: %s\n", e.Color)
	}
	if c := e.UserStoriesCounts; c != nil {
		fmt.Fprintf(&b, "User stories: %d (%g%% done)\n", c.Total, c.Progress)
	}
	writeCommon(&b, e.ID, e.Version, e.Tags, e.IsBlocked, e.CreatedDate, e.ModifiedDate, e.Description)
	return b.String()
}

func formatEpicList(epics []taiga.Epic) string {
	var b strings.Builder
	if !listHeader(&b, len(epics), "epic", "epics") {
		return b.String()
	}
	for _, e := range epics {
		fmt.Fprintf(&b, "- #%d %s (ID: %d, Status: %s)\n", e.Ref, e.Subject, e.ID, statusName(e.StatusExtraInfo))
	}
	return b.String()
}

func formatEpicLinks(epicID int, links []taiga.EpicRelatedUserStory) string {
	if len(links) == 0 {
		return fmt.Sprintf("Epic %d has no linked user stories.", epicID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Epic %d has %d linked user stories:\n", epicID, len(links))
	for _, l := range links {
		fmt.Fprintf(&b, "- user story %d (order %d)\n", l.UserStory, l.Order)
	}
	return b.String()
}

func formatMilestone(m *taiga.Milestone) string {
	closed, total, pct := m.Completion()

	var b strings.Builder
	fmt.Fprintf(&b, "Milestone: %s\n", m.Name)
	fmt.Fprintf(&b, "ID: %d\n", m.ID)
	fmt.Fprintf(&b, "Dates: %s - %s\n", m.EstimatedStart, m.EstimatedFinish)
	fmt.Fprintf(&b, "Closed: %t\n", m.Closed)
	fmt.Fprintf(&b, "Points: %g/%g (%d%%)\n", closed, total, pct)
	if len(m.UserStories) > 0 {
		fmt.Fprintf(&b, "User stories (%d):\n", len(m.UserStories))
		for _, us := range m.UserStories {
			fmt.Fprintf(&b, "- #%d %s (ID: %d, Status: %s)\n", us.Ref, us.Subject, us.ID, statusName(us.StatusExtraInfo))
		}
	}
	return b.String()
}

func formatMilestoneList(milestones []taiga.Milestone) string {
	var b strings.Builder
	if !listHeader(&b, len(milestones), "milestone", "milestones") {
		return b.String()
	}
	for _, m := range milestones {
		state := "open"
		if m.Closed {
			state = "closed"
		}
		_, _, pct := m.Completion()
		fmt.Fprintf(&b, "- %s (ID: %d, %s - %s, %s, %d%%)\n", m.Name, m.ID, m.EstimatedStart, m.EstimatedFinish, state, pct)
	}
	return b.String()
}

func formatWikiPage(p *taiga.WikiPage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Wiki page: %s\n", p.Slug)
	fmt.Fprintf(&b, "ID: %d\n", p.ID)
	fmt.Fprintf(&b, "Version: %d\n", p.Version)
	if p.ModifiedDate != "" {
		fmt.Fprintf(&b, "Modified: %s\n", p.ModifiedDate)
	}
	if p.Content != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Content)
	}
	return b.String()
}

func formatWikiPageList(pages []taiga.WikiPage) string {
	var b strings.Builder
	if !listHeader(&b, len(pages), "wiki page", "wiki pages") {
		return b.String()
	}
	for _, p := range pages {
		fmt.Fprintf(&b, "- %s (ID: %d)\n", p.Slug, p.ID)
	}
	return b.String()
}

func formatMemberships(members []taiga.Membership) string {
	var b strings.Builder
	if !listHeader(&b, len(members), "member", "members") {
		return b.String()
	}
	for _, m := range members {
		name := m.FullName
		if name == "" {
			name = m.Username
		}
		if name == "" {
			name = m.Email + " (pending invitation)"
		}
		var flags string
		if m.IsOwner {
			flags = ", owner"
		} else if m.IsAdmin {
			flags = ", admin"
		}
		fmt.Fprintf(&b, "- %s: %s (membership ID: %d%s)\n", name, m.RoleName, m.ID, flags)
	}
	return b.String()
}

func formatRoles(roles []taiga.Role) string {
	var b strings.Builder
	if !listHeader(&b, len(roles), "role", "roles") {
		return b.String()
	}
	for _, r := range roles {
		fmt.Fprintf(&b, "- %s (ID: %d, slug: %s)\n", r.Name, r.ID, r.Slug)
	}
	return b.String()
}

func formatAttributes(kind taiga.AttributeKind, attrs []taiga.Attribute) string {
	if len(attrs) == 0 {
		return fmt.Sprintf("No %s values found.", kind.Label())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Available %s values:\n", kind.Label())
	for _, a := range attrs {
		closed := ""
		if a.IsClosed {
			closed = ", closed"
		}
		fmt.Fprintf(&b, "- %s (ID: %d%s)\n", a.Name, a.ID, closed)
	}
	return b.String()
}

func formatHistory(kind taiga.ItemKind, id int, entries []taiga.HistoryEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No history for %s %d.", kind.Label(), id)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "History of %s %d (%d entries):\n", kind.Label(), id, len(entries))
	for _, e := range entries {
		who := e.User.Name
		if who == "" {
			who = e.User.Username
		}
		fmt.Fprintf(&b, "- %s by %s", e.CreatedAt, who)
		if len(e.ValuesDiff) > 0 {
			changed := make([]string, 0, len(e.ValuesDiff))
			for field := range e.ValuesDiff {
				changed = append(changed, field)
			}
			slices.Sort(changed)
			fmt.Fprintf(&b, ", changed %s", strings.Join(changed, ", "))
		}
		b.WriteString("\n")
		if e.Comment != "" {
			fmt.Fprintf(&b, "  %s\n", e.Comment)
		}
	}
	return b.String()
}

func formatSearchResults(text string, r *taiga.SearchResults) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search results for %q (%d):\n", text, r.Count)
	for _, us := range r.UserStories {
		fmt.Fprintf(&b, "- user story #%d %s (ID: %d)\n", us.Ref, us.Subject, us.ID)
	}
	for _, t := range r.Tasks {
		fmt.Fprintf(&b, "- task #%d %s (ID: %d)\n", t.Ref, t.Subject, t.ID)
	}
	for _, is := range r.Issues {
		fmt.Fprintf(&b, "- issue #%d %s (ID: %d)\n", is.Ref, is.Subject, is.ID)
	}
	for _, e := range r.Epics {
		fmt.Fprintf(&b, "- epic #%d %s (ID: %d)\n", e.Ref, e.Subject, e.ID)
	}
	for _, p := range r.WikiPages {
		fmt.Fprintf(&b, "- wiki page %s (ID: %d)\n", p.Slug, p.ID)
	}
	return b.String()
}
