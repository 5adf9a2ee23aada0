package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"github.com/ycho/taiga-mcp-server/internal/taiga"
)

// MilestoneReport combines a milestone with its burndown statistics
type MilestoneReport struct {
	Milestone *taiga.Milestone
	Stats     *taiga.MilestoneStats
	Closed    float64
	Total     float64
	Percent   int
}

// ReportGenerator generates milestone reports
type ReportGenerator struct {
	exportDir string
}

// NewReportGenerator creates a new report generator writing exports to dir
func NewReportGenerator(dir string) *ReportGenerator {
	if dir == "" {
		dir = os.TempDir()
	}
	return &ReportGenerator{exportDir: dir}
}

// MilestoneReport loads a milestone and its stats. Completion is derived
// from the milestone's closed and total points.
func (rg *ReportGenerator) MilestoneReport(ctx context.Context, client *taiga.Client, id int) (*MilestoneReport, error) {
	m, err := client.GetMilestone(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := client.GetMilestoneStats(ctx, id)
	if err != nil {
		return nil, err
	}

	closed, total, pct := m.Completion()
	return &MilestoneReport{
		Milestone: m,
		Stats:     stats,
		Closed:    closed,
		Total:     total,
		Percent:   pct,
	}, nil
}

// Text renders the report for a tool result
func (r *MilestoneReport) Text() string {
	m, s := r.Milestone, r.Stats

	var b strings.Builder
	fmt.Fprintf(&b, "Milestone: %s (ID: %d)\n", m.Name, m.ID)
	fmt.Fprintf(&b, "Dates: %s - %s\n", m.EstimatedStart, m.EstimatedFinish)
	if m.Closed {
		b.WriteString("State: closed\n")
	} else {
		b.WriteString("State: open\n")
	}
	fmt.Fprintf(&b, "Completion: %d%% (%g of %g points)\n", r.Percent, r.Closed, r.Total)
	fmt.Fprintf(&b, "User stories: %d/%d completed\n", s.CompletedUserStories, s.TotalUserStories)
	fmt.Fprintf(&b, "Tasks: %d/%d completed\n", s.CompletedTasks, s.TotalTasks)
	if s.IocaineDoses > 0 {
		fmt.Fprintf(&b, "Iocaine doses: %d\n", s.IocaineDoses)
	}
	if len(s.Days) > 0 {
		b.WriteString("Burndown:\n")
		for _, d := range s.Days {
			fmt.Fprintf(&b, "- %s: %g open (optimal %s)\n", d.Day, d.OpenPoints, points(d.OptimalPoints))
		}
	}
	return b.String()
}

var storyHeader = []any{"Ref", "Subject", "Status", "Assigned to", "Points", "Closed"}

// WriteXLSX writes the report to a new workbook in the export directory
// and returns its path.
func (rg *ReportGenerator) WriteXLSX(r *MilestoneReport) (string, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close workbook", "error", err)
		}
	}()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return "", err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", err
	}

	m, s := r.Milestone, r.Stats
	rows := [][]any{
		{"Milestone", m.Name},
		{"Start", m.EstimatedStart},
		{"Finish", m.EstimatedFinish},
		{"Closed", m.Closed},
		{"Closed points", r.Closed},
		{"Total points", r.Total},
		{"Completion %", r.Percent},
		{"User stories completed", s.CompletedUserStories},
		{"User stories total", s.TotalUserStories},
		{"Tasks completed", s.CompletedTasks},
		{"Tasks total", s.TotalTasks},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return "", err
		}
	}
	if err := f.SetCellStyle(summary, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return "", err
	}

	const stories = "User Stories"
	if _, err := f.NewSheet(stories); err != nil {
		return "", err
	}
	if err := f.SetSheetRow(stories, "A1", &storyHeader); err != nil {
		return "", err
	}
	if err := f.SetCellStyle(stories, "A1", "F1", bold); err != nil {
		return "", err
	}
	for i, us := range m.UserStories {
		row := []any{us.Ref, us.Subject, statusName(us.StatusExtraInfo), assigneeName(us.AssignedToExtraInfo), points(us.TotalPoints), us.IsClosed}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(stories, cell, &row); err != nil {
			return "", err
		}
	}

	if len(s.Days) > 0 {
		const burndown = "Burndown"
		if _, err := f.NewSheet(burndown); err != nil {
			return "", err
		}
		header := []any{"Day", "Open points", "Optimal points"}
		if err := f.SetSheetRow(burndown, "A1", &header); err != nil {
			return "", err
		}
		for i, d := range s.Days {
			row := []any{d.Day, d.OpenPoints, points(d.OptimalPoints)}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return "", err
			}
			if err := f.SetSheetRow(burndown, cell, &row); err != nil {
				return "", err
			}
		}
	}

	if err := os.MkdirAll(rg.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(rg.exportDir, fmt.Sprintf("milestone-%d-%s.xlsx", m.ID, uuid.NewString()))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	slog.Info("exported milestone report", "milestone_id", m.ID, "path", path)
	return path, nil
}
