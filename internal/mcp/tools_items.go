package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ycho/taiga-mcp-server/internal/taiga"
)

// itemArgs are the arguments shared by the user story, task, issue and epic tools.
// Pointer fields distinguish "not sent" from "cleared" on updates.
type itemArgs struct {
	Project     string    `mapstructure:"project"`
	ID          string    `mapstructure:"id"`
	Subject     *string   `mapstructure:"subject"`
	Description *string   `mapstructure:"description"`
	Status      string    `mapstructure:"status"`
	AssignedTo  string    `mapstructure:"assigned_to"`
	Milestone   string    `mapstructure:"milestone"`
	UserStory   string    `mapstructure:"user_story"`
	Epic        string    `mapstructure:"epic"`
	Type        string    `mapstructure:"type"`
	Priority    string    `mapstructure:"priority"`
	Severity    string    `mapstructure:"severity"`
	Color       string    `mapstructure:"color"`
	DueDate     *string   `mapstructure:"due_date"`
	Tags        *[]string `mapstructure:"tags"`
	IsBlocked   *bool     `mapstructure:"is_blocked"`
	BlockedNote *string   `mapstructure:"blocked_note"`
	Backlog     bool      `mapstructure:"backlog"`
	Version     int       `mapstructure:"version"`
}

func (a itemArgs) tags() taiga.Tags {
	if a.Tags == nil {
		return nil
	}
	return taiga.Tags(*a.Tags)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// toolNouns returns the singular and plural tool name stems for a kind
func toolNouns(kind taiga.ItemKind) (one, many string) {
	switch kind {
	case taiga.KindUserStory:
		return "user_story", "user_stories"
	case taiga.KindTask:
		return "task", "tasks"
	case taiga.KindIssue:
		return "issue", "issues"
	default:
		return "epic", "epics"
	}
}

func pluralLabel(kind taiga.ItemKind) string {
	if kind == taiga.KindUserStory {
		return "user stories"
	}
	return kind.Label() + "s"
}

func (h *ToolHandlers) registerItemTools(s McpServer, kind taiga.ItemKind) {
	one, many := toolNouns(kind)
	label := kind.Label()
	plural := pluralLabel(kind)

	idOpt := mcp.WithString("id",
		mcp.Required(),
		mcp.Description(fmt.Sprintf("%s ID, or #ref (e.g. #12) together with project", label)),
	)
	projectOpt := mcp.WithString("project",
		mcp.Description("Project ID or slug (required when id is a #ref)"),
	)

	listOpts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("List %s in a project", plural)),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project ID or slug"),
		),
		mcp.WithString("status",
			mcp.Description("Status name or ID"),
		),
		mcp.WithString("assigned_to",
			mcp.Description("Assignee username, full name, ID or 'me'"),
		),
	}
	if kind != taiga.KindEpic {
		listOpts = append(listOpts, mcp.WithString("milestone",
			mcp.Description("Milestone name or ID"),
		))
	}
	switch kind {
	case taiga.KindUserStory:
		listOpts = append(listOpts,
			mcp.WithBoolean("backlog",
				mcp.Description("Only stories not planned in any milestone"),
			),
			mcp.WithString("epic",
				mcp.Description("Epic ID or #ref"),
			),
		)
	case taiga.KindTask:
		listOpts = append(listOpts, mcp.WithString("user_story",
			mcp.Description("User story ID or #ref"),
		))
	}
	s.AddTool(mcp.NewTool("list_"+many, listOpts...), h.listItems(kind))

	s.AddTool(mcp.NewTool("get_"+one,
		mcp.WithDescription(fmt.Sprintf("Get %s details", label)),
		idOpt,
		projectOpt,
	), h.getItem(kind))

	createOpts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("Create a new %s", label)),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project ID or slug"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Subject/title"),
		),
		mcp.WithString("description",
			mcp.Description("Description (markdown)"),
		),
		mcp.WithString("status",
			mcp.Description("Status name or ID"),
		),
		mcp.WithString("assigned_to",
			mcp.Description("Assignee username, full name, ID or 'me'"),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags"),
			mcp.WithStringItems(),
		),
	}
	createOpts = append(createOpts, kindOptions(kind)...)
	s.AddTool(mcp.NewTool("create_"+one, createOpts...), h.createItem(kind))

	updateOpts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("Update a %s; only the given fields change", label)),
		idOpt,
		projectOpt,
		mcp.WithString("subject",
			mcp.Description("New subject/title"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("status",
			mcp.Description("New status name or ID"),
		),
		mcp.WithString("assigned_to",
			mcp.Description("New assignee, or 'none' to unassign"),
		),
		mcp.WithArray("tags",
			mcp.Description("Replacement tag list"),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("is_blocked",
			mcp.Description("Mark as blocked"),
		),
		mcp.WithString("blocked_note",
			mcp.Description("Reason for blocking"),
		),
		mcp.WithNumber("version",
			mcp.Description("Expected current version; fetched when omitted"),
		),
	}
	updateOpts = append(updateOpts, kindOptions(kind)...)
	s.AddTool(mcp.NewTool("update_"+one, updateOpts...), h.updateItem(kind))

	s.AddTool(mcp.NewTool("delete_"+one,
		mcp.WithDescription(fmt.Sprintf("Delete a %s", label)),
		destructive(),
		idOpt,
		projectOpt,
	), h.deleteItem(kind))
}

// kindOptions are the create/update fields only some kinds carry
func kindOptions(kind taiga.ItemKind) []mcp.ToolOption {
	var opts []mcp.ToolOption
	if kind != taiga.KindEpic {
		opts = append(opts,
			mcp.WithString("milestone",
				mcp.Description("Milestone name or ID, or 'none' to move to the backlog"),
			),
			mcp.WithString("due_date",
				mcp.Description("Due date (YYYY-MM-DD)"),
			),
		)
	}
	switch kind {
	case taiga.KindTask:
		opts = append(opts, mcp.WithString("user_story",
			mcp.Description("Parent user story ID or #ref"),
		))
	case taiga.KindIssue:
		opts = append(opts,
			mcp.WithString("type",
				mcp.Description("Issue type name or ID"),
			),
			mcp.WithString("priority",
				mcp.Description("Priority name or ID"),
			),
			mcp.WithString("severity",
				mcp.Description("Severity name or ID"),
			),
		)
	case taiga.KindEpic:
		opts = append(opts, mcp.WithString("color",
			mcp.Description("Hex color (e.g. #A5694F)"),
		))
	}
	return opts
}

// itemRefs holds the IDs resolved from the name-or-ID arguments
type itemRefs struct {
	status     int
	assignedTo int
	milestone  int
	userStory  int
	epic       int
	issueType  int
	priority   int
	severity   int
}

func (h *ToolHandlers) resolveRefs(ctx context.Context, b backend, kind taiga.ItemKind, projectID int, args itemArgs) (itemRefs, error) {
	var refs itemRefs
	var err error

	if args.Status != "" {
		if refs.status, err = b.resolver.ResolveStatus(ctx, kind, projectID, args.Status); err != nil {
			return refs, err
		}
	}
	if args.AssignedTo != "" && !isNone(args.AssignedTo) {
		if refs.assignedTo, err = b.resolver.ResolveUser(ctx, projectID, args.AssignedTo); err != nil {
			return refs, err
		}
	}
	if args.Milestone != "" && !isNone(args.Milestone) {
		if refs.milestone, err = b.resolver.ResolveMilestone(ctx, projectID, args.Milestone); err != nil {
			return refs, err
		}
	}
	if args.UserStory != "" {
		if refs.userStory, err = b.resolver.ResolveUserStory(ctx, projectID, args.UserStory); err != nil {
			return refs, err
		}
	}
	if args.Epic != "" {
		if refs.epic, err = b.resolver.ResolveEpic(ctx, projectID, args.Epic); err != nil {
			return refs, err
		}
	}
	if kind == taiga.KindIssue {
		attrs := []struct {
			kind  taiga.AttributeKind
			value string
			dst   *int
		}{
			{taiga.AttrIssueType, args.Type, &refs.issueType},
			{taiga.AttrPriority, args.Priority, &refs.priority},
			{taiga.AttrSeverity, args.Severity, &refs.severity},
		}
		for _, a := range attrs {
			if a.value == "" {
				continue
			}
			if *a.dst, err = b.resolver.ResolveAttribute(ctx, a.kind, projectID, a.value); err != nil {
				return refs, err
			}
		}
	}
	return refs, nil
}

// locateItem resolves the optional project and the item identifier
func (h *ToolHandlers) locateItem(ctx context.Context, b backend, kind taiga.ItemKind, args itemArgs) (projectID, id int, err error) {
	if err = requireArgs("id", args.ID); err != nil {
		return 0, 0, err
	}
	if args.Project != "" {
		if projectID, err = b.resolver.ResolveProject(ctx, args.Project); err != nil {
			return 0, 0, err
		}
	}
	id, err = b.resolver.ResolveItem(ctx, kind, projectID, args.ID)
	return projectID, id, err
}

func (h *ToolHandlers) listItems(kind taiga.ItemKind) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action := "list " + pluralLabel(kind)

		var args itemArgs
		if err := decodeArgs(req, &args); err != nil {
			return failed(action, err)
		}
		if err := requireArgs("project", args.Project); err != nil {
			return failed(action, err)
		}

		b := h.backend(ctx)
		projectID, err := b.resolver.ResolveProject(ctx, args.Project)
		if err != nil {
			return failed(action, err)
		}
		refs, err := h.resolveRefs(ctx, b, kind, projectID, args)
		if err != nil {
			return failed(action, err)
		}

		filter := taiga.ItemFilter{
			Project:    projectID,
			Status:     refs.status,
			AssignedTo: refs.assignedTo,
			Milestone:  refs.milestone,
			UserStory:  refs.userStory,
			Epic:       refs.epic,
			Backlog:    args.Backlog,
		}

		var text string
		switch kind {
		case taiga.KindUserStory:
			items, err := b.client.ListUserStories(ctx, filter)
			if err != nil {
				return failed(action, err)
			}
			text = formatUserStoryList(items)
		case taiga.KindTask:
			items, err := b.client.ListTasks(ctx, filter)
			if err != nil {
				return failed(action, err)
			}
			text = formatTaskList(items)
		case taiga.KindIssue:
			items, err := b.client.ListIssues(ctx, filter)
			if err != nil {
				return failed(action, err)
			}
			text = formatIssueList(items)
		case taiga.KindEpic:
			items, err := b.client.ListEpics(ctx, filter)
			if err != nil {
				return failed(action, err)
			}
			text = formatEpicList(items)
		}
		return textResult(text)
	}
}

func (h *ToolHandlers) getItem(kind taiga.ItemKind) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action := "get " + kind.Label()

		var args itemArgs
		if err := decodeArgs(req, &args); err != nil {
			return failed(action, err)
		}
		b := h.backend(ctx)
		_, id, err := h.locateItem(ctx, b, kind, args)
		if err != nil {
			return failed(action, err)
		}

		text, err := fetchItem(ctx, b.client, kind, id)
		if err != nil {
			return failed(action, err)
		}
		return textResult(text)
	}
}

// fetchItem loads one work item and renders it
func fetchItem(ctx context.Context, client *taiga.Client, kind taiga.ItemKind, id int) (string, error) {
	switch kind {
	case taiga.KindUserStory:
		us, err := client.GetUserStory(ctx, id)
		if err != nil {
			return "", err
		}
		return formatUserStory(us), nil
	case taiga.KindTask:
		t, err := client.GetTask(ctx, id)
		if err != nil {
			return "", err
		}
		return formatTask(t), nil
	case taiga.KindIssue:
		is, err := client.GetIssue(ctx, id)
		if err != nil {
			return "", err
		}
		return formatIssue(is), nil
	default:
		e, err := client.GetEpic(ctx, id)
		if err != nil {
			return "", err
		}
		return formatEpic(e), nil
	}
}

func (h *ToolHandlers) createItem(kind taiga.ItemKind) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action := "create " + kind.Label()
		if err := h.checkReadOnly(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var args itemArgs
		if err := decodeArgs(req, &args); err != nil {
			return failed(action, err)
		}
		if err := requireArgs("project", args.Project, "subject", deref(args.Subject)); err != nil {
			return failed(action, err)
		}

		b := h.backend(ctx)
		projectID, err := b.resolver.ResolveProject(ctx, args.Project)
		if err != nil {
			return failed(action, err)
		}
		refs, err := h.resolveRefs(ctx, b, kind, projectID, args)
		if err != nil {
			return failed(action, err)
		}

		var text string
		switch kind {
		case taiga.KindUserStory:
			us, err := b.client.CreateUserStory(ctx, taiga.CreateUserStoryParams{
				Project:     projectID,
				Subject:     *args.Subject,
				Description: deref(args.Description),
				Status:      refs.status,
				AssignedTo:  refs.assignedTo,
				Milestone:   refs.milestone,
				DueDate:     deref(args.DueDate),
				Tags:        args.tags(),
			})
			if err != nil {
				return failed(action, err)
			}
			text = "Created:\n" + formatUserStory(us)
		case taiga.KindTask:
			t, err := b.client.CreateTask(ctx, taiga.CreateTaskParams{
				Project:     projectID,
				Subject:     *args.Subject,
				Description: deref(args.Description),
				UserStory:   refs.userStory,
				Status:      refs.status,
				AssignedTo:  refs.assignedTo,
				Milestone:   refs.milestone,
				DueDate:     deref(args.DueDate),
				Tags:        args.tags(),
			})
			if err != nil {
				return failed(action, err)
			}
			text = "Created:\n" + formatTask(t)
		case taiga.KindIssue:
			is, err := b.client.CreateIssue(ctx, taiga.CreateIssueParams{
				Project:     projectID,
				Subject:     *args.Subject,
				Description: deref(args.Description),
				Status:      refs.status,
				Type:        refs.issueType,
				Priority:    refs.priority,
				Severity:    refs.severity,
				AssignedTo:  refs.assignedTo,
				Milestone:   refs.milestone,
				DueDate:     deref(args.DueDate),
				Tags:        args.tags(),
			})
			if err != nil {
				return failed(action, err)
			}
			text = "Created:\n" + formatIssue(is)
		case taiga.KindEpic:
			e, err := b.client.CreateEpic(ctx, taiga.CreateEpicParams{
				Project:     projectID,
				Subject:     *args.Subject,
				Description: deref(args.Description),
				Status:      refs.status,
				Color:       args.Color,
				AssignedTo:  refs.assignedTo,
				Tags:        args.tags(),
			})
			if err != nil {
				return failed(action, err)
			}
			text = "Created:\n" + formatEpic(e)
		}
		return textResult(text)
	}
}

// itemFields maps the update arguments onto a PATCH body
func (h *ToolHandlers) itemFields(ctx context.Context, b backend, kind taiga.ItemKind, projectID, id int, args itemArgs) (map[string]any, error) {
	fields := map[string]any{}
	if args.Subject != nil {
		fields["subject"] = *args.Subject
	}
	if args.Description != nil {
		fields["description"] = *args.Description
	}
	if args.DueDate != nil {
		fields["due_date"] = *args.DueDate
	}
	if args.Tags != nil {
		fields["tags"] = args.tags()
	}
	if args.IsBlocked != nil {
		fields["is_blocked"] = *args.IsBlocked
	}
	if args.BlockedNote != nil {
		fields["blocked_note"] = *args.BlockedNote
	}
	if args.Color != "" {
		fields["color"] = args.Color
	}

	named := args.Status != "" || args.AssignedTo != "" || args.Milestone != "" ||
		args.UserStory != "" || args.Type != "" || args.Priority != "" || args.Severity != ""
	if named {
		// Names resolve within the item's own project
		if projectID == 0 {
			var err error
			if projectID, err = b.client.ItemProject(ctx, kind, id); err != nil {
				return nil, err
			}
		}
		refs, err := h.resolveRefs(ctx, b, kind, projectID, args)
		if err != nil {
			return nil, err
		}
		setRef := func(key, arg string, id int) {
			switch {
			case arg == "":
			case isNone(arg):
				fields[key] = nil
			default:
				fields[key] = id
			}
		}
		setRef("status", args.Status, refs.status)
		setRef("assigned_to", args.AssignedTo, refs.assignedTo)
		setRef("milestone", args.Milestone, refs.milestone)
		setRef("user_story", args.UserStory, refs.userStory)
		setRef("type", args.Type, refs.issueType)
		setRef("priority", args.Priority, refs.priority)
		setRef("severity", args.Severity, refs.severity)
	}

	if len(fields) == 0 {
		return nil, errNoChanges
	}
	if args.Version > 0 {
		fields["version"] = args.Version
	}
	return fields, nil
}

func (h *ToolHandlers) updateItem(kind taiga.ItemKind) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action := "update " + kind.Label()
		if err := h.checkReadOnly(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var args itemArgs
		if err := decodeArgs(req, &args); err != nil {
			return failed(action, err)
		}
		b := h.backend(ctx)
		projectID, id, err := h.locateItem(ctx, b, kind, args)
		if err != nil {
			return failed(action, err)
		}
		fields, err := h.itemFields(ctx, b, kind, projectID, id, args)
		if err != nil {
			return failed(action, err)
		}

		var text string
		switch kind {
		case taiga.KindUserStory:
			us, err := b.client.UpdateUserStory(ctx, id, fields)
			if err != nil {
				return failed(action, err)
			}
			text = "Updated:\n" + formatUserStory(us)
		case taiga.KindTask:
			t, err := b.client.UpdateTask(ctx, id, fields)
			if err != nil {
				return failed(action, err)
			}
			text = "Updated:\n" + formatTask(t)
		case taiga.KindIssue:
			is, err := b.client.UpdateIssue(ctx, id, fields)
			if err != nil {
				return failed(action, err)
			}
			text = "Updated:\n" + formatIssue(is)
		case taiga.KindEpic:
			e, err := b.client.UpdateEpic(ctx, id, fields)
			if err != nil {
				return failed(action, err)
			}
			text = "Updated:\n" + formatEpic(e)
		}
		return textResult(text)
	}
}

func (h *ToolHandlers) deleteItem(kind taiga.ItemKind) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action := "delete " + kind.Label()
		if err := h.checkReadOnly(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var args itemArgs
		if err := decodeArgs(req, &args); err != nil {
			return failed(action, err)
		}
		b := h.backend(ctx)
		_, id, err := h.locateItem(ctx, b, kind, args)
		if err != nil {
			return failed(action, err)
		}

		switch kind {
		case taiga.KindUserStory:
			err = b.client.DeleteUserStory(ctx, id)
		case taiga.KindTask:
			err = b.client.DeleteTask(ctx, id)
		case taiga.KindIssue:
			err = b.client.DeleteIssue(ctx, id)
		case taiga.KindEpic:
			err = b.client.DeleteEpic(ctx, id)
		}
		if err != nil {
			return failed(action, err)
		}
		return textResult(fmt.Sprintf("Deleted %s %d", kind.Label(), id))
	}
}

func (h *ToolHandlers) registerEpicLinkTools(s McpServer) {
	s.AddTool(mcp.NewTool("link_user_story_to_epic",
		mcp.WithDescription("Link a user story to an epic"),
		mcp.WithString("epic",
			mcp.Required(),
			mcp.Description("Epic ID or #ref"),
		),
		mcp.WithString("user_story",
			mcp.Required(),
			mcp.Description("User story ID or #ref"),
		),
		mcp.WithString("project",
			mcp.Description("Project ID or slug (required for #refs)"),
		),
	), h.handleLinkUserStoryToEpic)

	s.AddTool(mcp.NewTool("list_epic_user_stories",
		mcp.WithDescription("List the user stories linked to an epic"),
		mcp.WithString("epic",
			mcp.Required(),
			mcp.Description("Epic ID or #ref"),
		),
		mcp.WithString("project",
			mcp.Description("Project ID or slug (required for #refs)"),
		),
	), h.handleListEpicUserStories)
}

func (h *ToolHandlers) resolveEpicLink(ctx context.Context, b backend, args itemArgs) (projectID, epicID int, err error) {
	if err = requireArgs("epic", args.Epic); err != nil {
		return 0, 0, err
	}
	if args.Project != "" {
		if projectID, err = b.resolver.ResolveProject(ctx, args.Project); err != nil {
			return 0, 0, err
		}
	}
	epicID, err = b.resolver.ResolveEpic(ctx, projectID, args.Epic)
	return projectID, epicID, err
}

func (h *ToolHandlers) handleLinkUserStoryToEpic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "link user story to epic"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var args itemArgs
	if err := decodeArgs(req, &args); err != nil {
		return failed(action, err)
	}
	if err := requireArgs("user_story", args.UserStory); err != nil {
		return failed(action, err)
	}

	b := h.backend(ctx)
	projectID, epicID, err := h.resolveEpicLink(ctx, b, args)
	if err != nil {
		return failed(action, err)
	}
	storyID, err := b.resolver.ResolveUserStory(ctx, projectID, args.UserStory)
	if err != nil {
		return failed(action, err)
	}

	if _, err := b.client.LinkUserStoryToEpic(ctx, epicID, storyID); err != nil {
		return failed(action, err)
	}
	return textResult(fmt.Sprintf("Linked user story %d to epic %d", storyID, epicID))
}

func (h *ToolHandlers) handleListEpicUserStories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "list epic user stories"

	var args itemArgs
	if err := decodeArgs(req, &args); err != nil {
		return failed(action, err)
	}
	b := h.backend(ctx)
	_, epicID, err := h.resolveEpicLink(ctx, b, args)
	if err != nil {
		return failed(action, err)
	}

	links, err := b.client.ListEpicUserStories(ctx, epicID)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatEpicLinks(epicID, links))
}
