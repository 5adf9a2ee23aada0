package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ycho/taiga-mcp-server/internal/taiga"
)

type milestoneArgs struct {
	Project         string   `mapstructure:"project"`
	Milestone       string   `mapstructure:"milestone"`
	Name            *string  `mapstructure:"name"`
	EstimatedStart  *string  `mapstructure:"estimated_start"`
	EstimatedFinish *string  `mapstructure:"estimated_finish"`
	Disponibility   *float64 `mapstructure:"disponibility"`
	Closed          *bool    `mapstructure:"closed"`
}

func (h *ToolHandlers) registerMilestoneTools(s McpServer) {
	milestoneOpt := mcp.WithString("milestone",
		mcp.Required(),
		mcp.Description("Milestone ID, or name together with project"),
	)
	projectOpt := mcp.WithString("project",
		mcp.Description("Project ID or slug (required when milestone is a name)"),
	)

	s.AddTool(mcp.NewTool("list_milestones",
		mcp.WithDescription("List the milestones (sprints) of a project"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project ID or slug"),
		),
		mcp.WithBoolean("closed",
			mcp.Description("Only closed (true) or open (false) milestones"),
		),
	), h.handleListMilestones)

	s.AddTool(mcp.NewTool("get_milestone",
		mcp.WithDescription("Get milestone details including its user stories"),
		milestoneOpt,
		projectOpt,
	), h.handleGetMilestone)

	s.AddTool(mcp.NewTool("create_milestone",
		mcp.WithDescription("Create a milestone (sprint)"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project ID or slug"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Milestone name"),
		),
		mcp.WithString("estimated_start",
			mcp.Required(),
			mcp.Description("Start date (YYYY-MM-DD)"),
		),
		mcp.WithString("estimated_finish",
			mcp.Required(),
			mcp.Description("Finish date (YYYY-MM-DD)"),
		),
		mcp.WithNumber("disponibility",
			mcp.Description("Team availability in points"),
		),
	), h.handleCreateMilestone)

	s.AddTool(mcp.NewTool("update_milestone",
		mcp.WithDescription("Update a milestone; set closed=true to close the sprint"),
		milestoneOpt,
		projectOpt,
		mcp.WithString("name",
			mcp.Description("New name"),
		),
		mcp.WithString("estimated_start",
			mcp.Description("Start date (YYYY-MM-DD)"),
		),
		mcp.WithString("estimated_finish",
			mcp.Description("Finish date (YYYY-MM-DD)"),
		),
		mcp.WithNumber("disponibility",
			mcp.Description("Team availability in points"),
		),
		mcp.WithBoolean("closed",
			mcp.Description("Whether the milestone is closed"),
		),
	), h.handleUpdateMilestone)

	s.AddTool(mcp.NewTool("delete_milestone",
		mcp.WithDescription("Delete a milestone"),
		destructive(),
		milestoneOpt,
		projectOpt,
	), h.handleDeleteMilestone)

	s.AddTool(mcp.NewTool("get_milestone_stats",
		mcp.WithDescription("Get sprint progress: completion percentage, story and task counts, burndown"),
		milestoneOpt,
		projectOpt,
	), h.handleGetMilestoneStats)

	s.AddTool(mcp.NewTool("export_milestone_xlsx",
		mcp.WithDescription("Export a sprint report with its user stories to an Excel workbook"),
		milestoneOpt,
		projectOpt,
	), h.handleExportMilestoneXLSX)
}

// locateMilestone decodes milestone arguments and resolves the milestone ID
func (h *ToolHandlers) locateMilestone(ctx context.Context, req mcp.CallToolRequest) (backend, milestoneArgs, int, error) {
	var args milestoneArgs
	b := h.backend(ctx)
	if err := decodeArgs(req, &args); err != nil {
		return b, args, 0, err
	}
	if err := requireArgs("milestone", args.Milestone); err != nil {
		return b, args, 0, err
	}

	var projectID int
	if args.Project != "" {
		var err error
		if projectID, err = b.resolver.ResolveProject(ctx, args.Project); err != nil {
			return b, args, 0, err
		}
	}
	id, err := b.resolver.ResolveMilestone(ctx, projectID, args.Milestone)
	return b, args, id, err
}

func (h *ToolHandlers) handleListMilestones(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "list milestones"

	var args milestoneArgs
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

	milestones, err := b.client.ListMilestones(ctx, projectID, args.Closed)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatMilestoneList(milestones))
}

func (h *ToolHandlers) handleGetMilestone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "get milestone"

	b, _, id, err := h.locateMilestone(ctx, req)
	if err != nil {
		return failed(action, err)
	}
	m, err := b.client.GetMilestone(ctx, id)
	if err != nil {
		return failed(action, err)
	}
	return textResult(formatMilestone(m))
}

func (h *ToolHandlers) handleCreateMilestone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "create milestone"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var args milestoneArgs
	if err := decodeArgs(req, &args); err != nil {
		return failed(action, err)
	}
	if err := requireArgs(
		"project", args.Project,
		"name", deref(args.Name),
		"estimated_start", deref(args.EstimatedStart),
		"estimated_finish", deref(args.EstimatedFinish),
	); err != nil {
		return failed(action, err)
	}

	b := h.backend(ctx)
	projectID, err := b.resolver.ResolveProject(ctx, args.Project)
	if err != nil {
		return failed(action, err)
	}

	params := taiga.CreateMilestoneParams{
		Project:         projectID,
		Name:            *args.Name,
		EstimatedStart:  *args.EstimatedStart,
		EstimatedFinish: *args.EstimatedFinish,
	}
	if args.Disponibility != nil {
		params.Disponibility = *args.Disponibility
	}

	m, err := b.client.CreateMilestone(ctx, params)
	if err != nil {
		return failed(action, err)
	}
	return textResult("Created:\n" + formatMilestone(m))
}

func (h *ToolHandlers) handleUpdateMilestone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "update milestone"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b, args, id, err := h.locateMilestone(ctx, req)
	if err != nil {
		return failed(action, err)
	}

	fields := map[string]any{}
	if args.Name != nil {
		fields["name"] = *args.Name
	}
	if args.EstimatedStart != nil {
		fields["estimated_start"] = *args.EstimatedStart
	}
	if args.EstimatedFinish != nil {
		fields["estimated_finish"] = *args.EstimatedFinish
	}
	if args.Disponibility != nil {
		fields["disponibility"] = *args.Disponibility
	}
	if args.Closed != nil {
		fields["closed"] = *args.Closed
	}
	if len(fields) == 0 {
		return failed(action, errNoChanges)
	}

	m, err := b.client.UpdateMilestone(ctx, id, fields)
	if err != nil {
		return failed(action, err)
	}
	return textResult("Updated:\n" + formatMilestone(m))
}

func (h *ToolHandlers) handleDeleteMilestone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "delete milestone"
	if err := h.checkReadOnly(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b, _, id, err := h.locateMilestone(ctx, req)
	if err != nil {
		return failed(action, err)
	}
	if err := b.client.DeleteMilestone(ctx, id); err != nil {
		return failed(action, err)
	}
	return textResult(fmt.Sprintf("Deleted milestone %d", id))
}

func (h *ToolHandlers) handleGetMilestoneStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "get milestone stats"

	b, _, id, err := h.locateMilestone(ctx, req)
	if err != nil {
		return failed(action, err)
	}
	report, err := h.reports.MilestoneReport(ctx, b.client, id)
	if err != nil {
		return failed(action, err)
	}
	return textResult(report.Text())
}

func (h *ToolHandlers) handleExportMilestoneXLSX(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const action = "export milestone"

	b, _, id, err := h.locateMilestone(ctx, req)
	if err != nil {
		return failed(action, err)
	}
	report, err := h.reports.MilestoneReport(ctx, b.client, id)
	if err != nil {
		return failed(action, err)
	}
	path, err := h.reports.WriteXLSX(report)
	if err != nil {
		return failed(action, err)
	}
	return textResult(fmt.Sprintf("Exported milestone %q (%d%% complete) to %s", report.Milestone.Name, report.Percent, path))
}
