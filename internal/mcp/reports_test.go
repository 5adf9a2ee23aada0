package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/ycho/taiga-mcp-server/internal/taiga"
)

func sprintFixture() *fakeTaiga {
	fake := newFakeTaiga()
	fake.milestones[5] = taiga.Milestone{
		ID:              5,
		Name:            "Sprint 1",
		Project:         7,
		EstimatedStart:  "2026-01-05",
		EstimatedFinish: "2026-01-19",
		ClosedPoints:    floatPtr(5),
		TotalPoints:     floatPtr(8),
		UserStories: []taiga.UserStory{
			{ID: 101, Ref: 1, Subject: "Login page", TotalPoints: floatPtr(5), IsClosed: true},
			{ID: 102, Ref: 2, Subject: "Logout", TotalPoints: floatPtr(3)},
		},
	}
	fake.stats[5] = taiga.MilestoneStats{
		Name:                 "Sprint 1",
		TotalUserStories:     2,
		CompletedUserStories: 1,
		Days: []taiga.MilestoneDay{
			{Day: "2026-01-05", OpenPoints: 8, OptimalPoints: floatPtr(8)},
			{Day: "2026-01-06", OpenPoints: 3, OptimalPoints: floatPtr(7.2)},
		},
	}
	return fake
}

func TestMilestoneReport(t *testing.T) {
	h := newTestHandlers(t, sprintFixture(), Options{})

	report, err := h.reports.MilestoneReport(context.Background(), h.client, 5)
	require.NoError(t, err)
	assert.Equal(t, 63, report.Percent)
	assert.Equal(t, 5.0, report.Closed)
	assert.Equal(t, 8.0, report.Total)

	text := report.Text()
	assert.Contains(t, text, "Milestone: Sprint 1 (ID: 5)\n")
	assert.Contains(t, text, "State: open\n")
	assert.Contains(t, text, "Completion: 63% (5 of 8 points)\n")
	assert.Contains(t, text, "Burndown:\n- 2026-01-05: 8 open (optimal 8)\n- 2026-01-06: 3 open (optimal 7.2)\n")
}

func TestMilestoneReport_NotFound(t *testing.T) {
	h := newTestHandlers(t, newFakeTaiga(), Options{})

	_, err := h.reports.MilestoneReport(context.Background(), h.client, 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, taiga.ErrNotFound)
}

func TestExportMilestoneXLSX(t *testing.T) {
	dir := t.TempDir()
	h := newTestHandlers(t, sprintFixture(), Options{ExportDir: dir})

	result := callTool(t, context.Background(), h.handleExportMilestoneXLSX, map[string]any{"milestone": "5"})
	require.False(t, result.IsError, resultText(result))

	text := resultText(result)
	require.True(t, strings.HasPrefix(text, `Exported milestone "Sprint 1" (63% complete) to `), text)
	path := strings.TrimPrefix(text, `Exported milestone "Sprint 1" (63% complete) to `)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "milestone-5-"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Summary", "User Stories", "Burndown"}, f.GetSheetList())

	name, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Sprint 1", name)

	pct, err := f.GetCellValue("Summary", "B7")
	require.NoError(t, err)
	assert.Equal(t, "63", pct)

	rows, err := f.GetRows("User Stories")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Subject", rows[0][1])
	assert.Equal(t, "Login page", rows[1][1])
	assert.Equal(t, "Logout", rows[2][1])

	burndown, err := f.GetRows("Burndown")
	require.NoError(t, err)
	assert.Len(t, burndown, 3)
}

func TestExportMilestoneXLSX_UnknownMilestone(t *testing.T) {
	dir := t.TempDir()
	h := newTestHandlers(t, newFakeTaiga(), Options{ExportDir: dir})

	result := callTool(t, context.Background(), h.handleExportMilestoneXLSX, map[string]any{"milestone": "99"})
	require.True(t, result.IsError)
	assert.True(t, strings.HasPrefix(resultText(result), "Failed to export milestone: "))

	entries, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
