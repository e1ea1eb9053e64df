package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/tools"
)

//go:embed template/system_prompt.txt
var analyticsSystemPrompt string

// RenderSystem renders the analytics assistant system prompt for the
// configured business.
func RenderSystem(ctx context.Context, config model.PromptConfig) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(analyticsSystemPrompt),
	)
	vars := map[string]any{
		"BusinessName":          config.BusinessName,
		"BusinessLocation":      config.BusinessLocation,
		"TenantID":              config.TenantID,
		"DailySalesTool":        tools.ToolShowDailySales,
		"TopItemsTool":          tools.ToolShowTopItems,
		"CategoryBreakdownTool": tools.ToolShowCategoryBreakdown,
		"TotalSalesTool":        tools.ToolGetTotalSales,
		"PeakDayTool":           tools.ToolFindPeakDay,
		"DayTypesTool":          tools.ToolCompareDayTypes,
		"ItemPerformanceTool":   tools.ToolTrackItemPerformance,
		"ComparePeriodsTool":    tools.ToolComparePeriods,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}
