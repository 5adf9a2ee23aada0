package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

type wikiArgs struct {
	Project string  `mapstructure:"project"`
	Page    string  `mapstructure:"page"`
	Slug    string  `mapstructure:"slug"`
	Content *string `mapstructure:"content"`
}

func (h *ToolHandlers) registerWikiTools(s McpServer) {
	pageOpt := mcp.WithString("page",
		mcp.Required(),
		mcp.Description("Wiki page ID, or slug together with project"),
	)
	projectOpt := mcp.WithString("project",
		mcp.Description("Project ID or slug (required when page is a slug)"),
	)

	s.AddTool(mcp.NewTool("list_wiki_pages",
		mcp.WithDescription("List the wiki pages of a project"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project ID or slug"),
		),
	), h.handleListWikiPages)

	s.AddTool(mcp.NewTool("get_wiki_page",
		mcp.WithDescription("Get a wiki page with its content"),
		pageOpt,
		projectOpt,
	), h.handleGetWikiPage)

	s.AddTool(mcp.NewTool("create_wiki_page",
		mcp.WithDescription("Create a wiki page"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project ID or slug"),
		),
		mcp.WithString("slug",
			mcp.Required(),
			mcp.Description("Page slug (e.g. home)"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Page content (markdown)"),
		),
	), h.handleCreateWikiPage)

	s.AddTool(mcp.NewTool("update_wiki_page",
		mcp.WithDescription("Replace the content of a wiki page"),
		pageOpt,
		projectOpt,
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("New page content (markdown)"),
		),
	), h.handleUpdateWikiPage)

	s.AddTool(mcp.NewTool("delete_wiki_page",
		mcp.WithDescription("Delete a wiki page"),
		destructive(),
		pageOpt,
		projectOpt,
	), h.handleDeleteWikiPage)
}

// locateWikiPage decodes wiki arguments and resolves the page ID
func (h *ToolHandlers) locateWikiPage(ctx context.Context, req mcp.CallToolRequest) (backend, wikiArgs, int, error) {
	var args wikiArgs
	b := h.backend(ctx)
	if err := decodeArgs(req, &args); err != nil {
		return b, args, 0, err
	}
	if err := requireArgs("page", args.Page); err != nil {
		return b, args, 0, err
	}

	var projectID int
	if args.Project != "" {
		var err error
		if projectID, err = b.resolver.ResolveProject(ctx, args.Project); err != nil {
			return b, args, 0, err
		}
	}
	id, err := b.resolver.ResolveWikiPage(ctx, projectID, args.Page)
	return b, args, id, err
}

func (h *ToolHandlers) handleListWikiPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "list wiki pages"

	project, err := req.RequireString("project")
	if err != nil {
		return failed(action, err)
	}
	b := h.backend(ctx)
	projectID, err := b.resolver.ResolveProject(ctx, project)
	if err != nil {
		return failed(action, err)
	}

	pages, err := b.client.ListWikiPages(ctx, projectID)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatWikiPageList(pages))
}

func (h *ToolHandlers) handleGetWikiPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "get wiki page"

	b, _, id, err := h.locateWikiPage(ctx, req)
	if err != nil {
		return failed(action, err)
	}
	page, err := b.client.GetWikiPage(ctx, id)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatWikiPage(page))
}

func (h *ToolHandlers) handleCreateWikiPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "create wiki page"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var args wikiArgs
	if err := decodeArgs(req, &args); err != nil {
		return failed(action, err)
	}
	if err := requireArgs("project", args.Project, "slug", args.Slug, "content", deref(args.Content)); err != nil {
		return failed(action, err)
	}

	b := h.backend(ctx)
	projectID, err := b.resolver.ResolveProject(ctx, args.Project)
	if err != nil {
		return failed(action, err)
	}
	page, err := b.client.CreateWikiPage(ctx, projectID, args.Slug, *args.Content)
	if err != nil {
		return failed(action, err)
	}
	return textResult("Created:\n" + formatWikiPage(page))
}

func (h *ToolHandlers) handleUpdateWikiPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "update wiki page"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b, args, id, err := h.locateWikiPage(ctx, req)
	if err != nil {
		return failed(action, err)
	}
	if args.Content == nil {
		return failed(action, errNoChanges)
	}

	page, err := b.client.UpdateWikiPage(ctx, id, *args.Content)
	if err != nil {
		return failed(action, err)
	}
	return textResult("Updated:\n" + formatWikiPage(page))
}

func (h *ToolHandlers) handleDeleteWikiPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "delete wiki page"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b, _, id, err := h.locateWikiPage(ctx, req)
	if err != nil {
		return failed(action, err)
	}
	if err := b.client.DeleteWikiPage(ctx, id); err != nil {
		return failed(action, err)
	}
	return textResult(fmt.Sprintf("Deleted wiki page %d", id))
}
