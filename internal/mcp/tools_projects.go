package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ycho/taiga-mcp-server/internal/taiga"
)

type projectArgs struct {
	Project     string    `mapstructure:"project"`
	Member      string    `mapstructure:"member"`
	Name        *string   `mapstructure:"name"`
	Description *string   `mapstructure:"description"`
	IsPrivate   *bool     `mapstructure:"is_private"`
	Tags        *[]string `mapstructure:"tags"`
}

type memberArgs struct {
	Project string `mapstructure:"project"`
	User    string `mapstructure:"user"`
	Role    string `mapstructure:"role"`
	Kind    string `mapstructure:"kind"`
}

func (h *ToolHandlers) registerProjectTools(s McpServer) {
	// Session
	s.AddTool(mcp.NewTool("authenticate",
		mcp.WithDescription("Log in to Taiga; without arguments the configured credentials are used"),
		mcp.WithString("username",
			mcp.Description("Taiga username or email"),
		),
		mcp.WithString("password",
			mcp.Description("Taiga password"),
		),
	), h.handleAuthenticate)

	s.AddTool(mcp.NewTool("get_current_user",
		mcp.WithDescription("Get the authenticated user"),
	), h.handleGetCurrentUser)

	// Projects
	s.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List projects"),
		mcp.WithString("member",
			mcp.Description("Only projects this user belongs to: user ID or 'me'"),
		),
	), h.handleListProjects)

	s.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Get project details"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project ID or slug"),
		),
	), h.handleGetProject)

	s.AddTool(mcp.NewTool("create_project",
		mcp.WithDescription("Create a new project"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Project description"),
		),
		mcp.WithBoolean("is_private",
			mcp.Description("Whether the project is private"),
		),
		mcp.WithArray("tags",
			mcp.Description("Project tags"),
			mcp.WithStringItems(),
		),
	), h.handleCreateProject)

	s.AddTool(mcp.NewTool("update_project",
		mcp.WithDescription("Update a project"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project ID or slug"),
		),
		mcp.WithString("name",
			mcp.Description("New name"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithBoolean("is_private",
			mcp.Description("Whether the project is private"),
		),
		mcp.WithArray("tags",
			mcp.Description("Replacement tag list"),
			mcp.WithStringItems(),
		),
	), h.handleUpdateProject)

	s.AddTool(mcp.NewTool("delete_project",
		mcp.WithDescription("Delete a project and everything in it"),
		destructive(),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project ID or slug"),
		),
	), h.handleDeleteProject)
}

func (h *ToolHandlers) registerMemberTools(s McpServer) {
	projectOpt := mcp.WithString("project",
		mcp.Required(),
		mcp.Description("Project ID or slug"),
	)

	s.AddTool(mcp.NewTool("list_project_members",
		mcp.WithDescription("List project memberships"),
		projectOpt,
	), h.handleListProjectMembers)

	s.AddTool(mcp.NewTool("invite_project_user",
		mcp.WithDescription("Invite a user to a project"),
		projectOpt,
		mcp.WithString("user",
			mcp.Required(),
			mcp.Description("Username or email to invite"),
		),
		mcp.WithString("role",
			mcp.Required(),
			mcp.Description("Role name or ID"),
		),
	), h.handleInviteProjectUser)

	s.AddTool(mcp.NewTool("remove_membership",
		mcp.WithDescription("Remove a membership from a project"),
		destructive(),
		mcp.WithNumber("membership_id",
			mcp.Required(),
			mcp.Description("Membership ID (see list_project_members)"),
		),
	), h.handleRemoveMembership)

	s.AddTool(mcp.NewTool("list_roles",
		mcp.WithDescription("List project roles"),
		projectOpt,
	), h.handleListRoles)

	s.AddTool(mcp.NewTool("list_statuses",
		mcp.WithDescription("List the statuses available for a kind of work item"),
		projectOpt,
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Work item kind"),
			mcp.Enum("userstory", "task", "issue", "epic"),
		),
	), h.handleListStatuses)

	s.AddTool(mcp.NewTool("list_issue_types",
		mcp.WithDescription("List issue types"),
		projectOpt,
	), h.listAttributes(taiga.AttrIssueType))

	s.AddTool(mcp.NewTool("list_priorities",
		mcp.WithDescription("List issue priorities"),
		projectOpt,
	), h.listAttributes(taiga.AttrPriority))

	s.AddTool(mcp.NewTool("list_severities",
		mcp.WithDescription("List issue severities"),
		projectOpt,
	), h.listAttributes(taiga.AttrSeverity))
}

// Handler implementations

func (h *ToolHandlers) handleAuthenticate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "authenticate"
	if _, ok := tokenFromContext(ctx); ok || h.session == nil {
		return failed(action, errors.New("this connection uses a pre-issued token"))
	}
	if h.opts.NetworkClients {
		return failed(action, errors.New("login is only available over stdio"))
	}

	creds := taiga.Credentials{
		Username: req.GetString("username", ""),
		Password: req.GetString("password", ""),
	}
	user, err := h.session.Authenticate(ctx, creds)
	if err != nil {
		return failed(action, err)
	}
	slog.Info("authenticated", "username", user.Username)
	return textResult(fmt.Sprintf("Authenticated as %s (ID: %d)", user.DisplayName(), user.ID))
}

func (h *ToolHandlers) handleGetCurrentUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		user *taiga.User
		err  error
	)
	if _, ok := tokenFromContext(ctx); ok || h.session == nil {
		user, err = h.backend(ctx).client.GetMe(ctx)
	} else {
		user, err = h.session.CurrentUser(ctx)
	}
	if err != nil {
		return failed("get current user", err)
	}
	return textResult(formatUser(user))
}

func (h *ToolHandlers) handleListProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "list projects"

	var args projectArgs
	if err := decodeArgs(req, &args); err != nil {
		return failed(action, err)
	}

	b := h.backend(ctx)
	var memberID int
	if args.Member != "" {
		var err error
		if memberID, err = b.resolver.ResolveUser(ctx, 0, args.Member); err != nil {
			return failed(action, err)
		}
	}

	projects, err := b.client.ListProjects(ctx, memberID)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatProjectList(projects))
}

func (h *ToolHandlers) handleGetProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "get project"

	project, err := req.RequireString("project")
	if err != nil {
		return failed(action, err)
	}
	b := h.backend(ctx)
	projectID, err := b.resolver.ResolveProject(ctx, project)
	if err != nil {
		return failed(action, err)
	}

	p, err := b.client.GetProject(ctx, projectID)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatProject(p))
}

func (h *ToolHandlers) handleCreateProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "create project"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var args projectArgs
	if err := decodeArgs(req, &args); err != nil {
		return failed(action, err)
	}
	if err := requireArgs("name", deref(args.Name)); err != nil {
		return failed(action, err)
	}

	params := taiga.CreateProjectParams{
		Name:        *args.Name,
		Description: deref(args.Description),
	}
	if args.IsPrivate != nil {
		params.IsPrivate = *args.IsPrivate
	}
	if args.Tags != nil {
		params.Tags = *args.Tags
	}

	p, err := h.backend(ctx).client.CreateProject(ctx, params)
	if err != nil {
		return failed(action, err)
	}
	return textResult("Created:\n" + formatProject(p))
}

func (h *ToolHandlers) handleUpdateProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "update project"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var args projectArgs
	if err := decodeArgs(req, &args); err != nil {
		return failed(action, err)
	}
	if err := requireArgs("project", args.Project); err != nil {
		return failed(action, err)
	}

	fields := map[string]any{}
	if args.Name != nil {
		fields["name"] = *args.Name
	}
	if args.Description != nil {
		fields["description"] = *args.Description
	}
	if args.IsPrivate != nil {
		fields["is_private"] = *args.IsPrivate
	}
	if args.Tags != nil {
		fields["tags"] = *args.Tags
	}
	if len(fields) == 0 {
		return failed(action, errNoChanges)
	}

	b := h.backend(ctx)
	projectID, err := b.resolver.ResolveProject(ctx, args.Project)
	if err != nil {
		return failed(action, err)
	}
	p, err := b.client.UpdateProject(ctx, projectID, fields)
	if err != nil {
		return failed(action, err)
	}
	return textResult("Updated:\n" + formatProject(p))
}

func (h *ToolHandlers) handleDeleteProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "delete project"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	project, err := req.RequireString("project")
	if err != nil {
		return failed(action, err)
	}
	b := h.backend(ctx)
	projectID, err := b.resolver.ResolveProject(ctx, project)
	if err != nil {
		return failed(action, err)
	}
	if err := b.client.DeleteProject(ctx, projectID); err != nil {
		return failed(action, err)
	}
	return textResult(fmt.Sprintf("Deleted project %d", projectID))
}

// projectCall decodes member arguments and resolves the project for a handler
func (h *ToolHandlers) projectCall(ctx context.Context, req mcp.CallToolRequest) (backend, memberArgs, int, error) {
	var args memberArgs
	b := h.backend(ctx)
	if err := decodeArgs(req, &args); err != nil {
		return b, args, 0, err
	}
	if err := requireArgs("project", args.Project); err != nil {
		return b, args, 0, err
	}
	projectID, err := b.resolver.ResolveProject(ctx, args.Project)
	return b, args, projectID, err
}

func (h *ToolHandlers) handleListProjectMembers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "list project members"

	b, _, projectID, err := h.projectCall(ctx, req)
	if err != nil {
		return failed(action, err)
	}
	members, err := b.client.ListMemberships(ctx, projectID)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatMemberships(members))
}

func (h *ToolHandlers) handleInviteProjectUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "invite project user"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b, args, projectID, err := h.projectCall(ctx, req)
	if err != nil {
		return failed(action, err)
	}
	if err := requireArgs("user", args.User, "role", args.Role); err != nil {
		return failed(action, err)
	}
	roleID, err := b.resolver.ResolveRole(ctx, projectID, args.Role)
	if err != nil {
		return failed(action, err)
	}

	m, err := b.client.InviteMember(ctx, projectID, roleID, args.User)
	if err != nil {
		return failed(action, err)
	}
	return textResult(fmt.Sprintf("Invited %s to project %d as %s (membership ID: %d)", args.User, projectID, m.RoleName, m.ID))
}

func (h *ToolHandlers) handleRemoveMembership(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "remove membership"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := req.GetInt("membership_id", 0)
	if id <= 0 {
		return failed(action, errors.New("membership_id is required"))
	}
	if err := h.backend(ctx).client.DeleteMembership(ctx, id); err != nil {
		return failed(action, err)
	}
	return textResult(fmt.Sprintf("Removed membership %d", id))
}

func (h *ToolHandlers) handleListRoles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "list roles"

	b, _, projectID, err := h.projectCall(ctx, req)
	if err != nil {
		return failed(action, err)
	}
	roles, err := b.client.ListRoles(ctx, projectID)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatRoles(roles))
}

func (h *ToolHandlers) handleListStatuses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "list statuses"

	b, args, projectID, err := h.projectCall(ctx, req)
	if err != nil {
		return failed(action, err)
	}
	kind, err := taiga.ParseItemKind(args.Kind)
	if err != nil {
		return failed(action, err)
	}
	attrs, err := b.resolver.Attributes(ctx, taiga.StatusAttribute(kind), projectID)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatAttributes(taiga.StatusAttribute(kind), attrs))
}

func (h *ToolHandlers) listAttributes(kind taiga.AttributeKind) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action := "list " + kind.Label()

		b, _, projectID, err := h.projectCall(ctx, req)
		if err != nil {
			return failed(action, err)
		}
		attrs, err := b.resolver.Attributes(ctx, kind, projectID)
		if err != nil {
			return failed(action, err)
		}
		return textResult(formatAttributes(kind, attrs))
	}
}
