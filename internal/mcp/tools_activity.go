package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ycho/taiga-mcp-server/internal/taiga"
)

type activityArgs struct {
	Kind    string `mapstructure:"kind"`
	ID      string `mapstructure:"id"`
	Project string `mapstructure:"project"`
	Comment string `mapstructure:"comment"`
	Text    string `mapstructure:"text"`
}

func (h *ToolHandlers) registerActivityTools(s McpServer) {
	kindOpt := mcp.WithString("kind",
		mcp.Required(),
		mcp.Description("Work item kind"),
		mcp.Enum("userstory", "task", "issue", "epic"),
	)
	idOpt := mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Work item ID, or #ref together with project"),
	)
	projectOpt := mcp.WithString("project",
		mcp.Description("Project ID or slug (required when id is a #ref)"),
	)

	s.AddTool(mcp.NewTool("add_comment",
		mcp.WithDescription("Add a comment to a user story, task, issue or epic"),
		kindOpt,
		idOpt,
		projectOpt,
		mcp.WithString("comment",
			mcp.Required(),
			mcp.Description("Comment text (markdown)"),
		),
	), h.handleAddComment)

	s.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Get the change history and comments of a work item"),
		kindOpt,
		idOpt,
		projectOpt,
	), h.handleGetHistory)

	s.AddTool(mcp.NewTool("search_project",
		mcp.WithDescription("Full-text search across a project's stories, tasks, issues, epics and wiki"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project ID or slug"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Search text"),
		),
	), h.handleSearchProject)

	s.AddTool(mcp.NewTool("export_project",
		mcp.WithDescription("Start a project export and return the download link"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project ID or slug"),
		),
	), h.handleExportProject)
}

// locateActivityItem resolves the kind and item of a comment or history call
func (h *ToolHandlers) locateActivityItem(ctx context.Context, b backend, args activityArgs) (taiga.ItemKind, int, error) {
	kind, err := taiga.ParseItemKind(args.Kind)
	if err != nil {
		return "", 0, err
	}
	_, id, err := h.locateItem(ctx, b, kind, itemArgs{Project: args.Project, ID: args.ID})
	return kind, id, err
}

func (h *ToolHandlers) handleAddComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "add comment"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var args activityArgs
	if err := decodeArgs(req, &args); err != nil {
		return failed(action, err)
	}
	if err := requireArgs("comment", args.Comment); err != nil {
		return failed(action, err)
	}

	b := h.backend(ctx)
	kind, id, err := h.locateActivityItem(ctx, b, args)
	if err != nil {
		return failed(action, err)
	}
	if err := b.client.AddComment(ctx, kind, id, args.Comment); err != nil {
		return failed(action, err)
	}
	return textResult(fmt.Sprintf("Comment added to %s %d", kind.Label(), id))
}

func (h *ToolHandlers) handleGetHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "get history"

	var args activityArgs
	if err := decodeArgs(req, &args); err != nil {
		return failed(action, err)
	}
	b := h.backend(ctx)
	kind, id, err := h.locateActivityItem(ctx, b, args)
	if err != nil {
		return failed(action, err)
	}

	history, err := b.client.GetHistory(ctx, kind, id)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatHistory(kind, id, history))
}

func (h *ToolHandlers) handleSearchProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "search project"

	var args activityArgs
	if err := decodeArgs(req, &args); err != nil {
		return failed(action, err)
	}
	if err := requireArgs("project", args.Project, "text", args.Text); err != nil {
		return failed(action, err)
	}

	b := h.backend(ctx)
	projectID, err := b.resolver.ResolveProject(ctx, args.Project)
	if err != nil {
		return failed(action, err)
	}
	results, err := b.client.Search(ctx, projectID, args.Text)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatSearchResults(args.Text, results))
}

func (h *ToolHandlers) handleExportProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "export project"

	project, err := req.RequireString("project")
	if err != nil {
		return failed(action, err)
	}
	b := h.backend(ctx)
	projectID, err := b.resolver.ResolveProject(ctx, project)
	if err != nil {
		return failed(action, err)
	}

	res, err := b.client.ExportProject(ctx, projectID)
	if err != nil {
		return failed(action, err)
	}
	if res.URL != "" {
		return textResult(fmt.Sprintf("Project %d exported: %s", projectID, res.URL))
	}
	return textResult(fmt.Sprintf("Project %d export started (export ID: %s); Taiga emails the download link when it is ready", projectID, res.ExportID))
}
