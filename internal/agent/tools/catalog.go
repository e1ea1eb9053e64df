// Package tools defines the built-in catalog of analytics tools the model may
// call. The catalog mirrors the tool-execution service's own descriptor list
// and serves as the authoritative fallback when remote listing is unreachable.
package tools

import (
	"encoding/json"
	"sort"

	"github.com/cloudwego/eino/schema"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
)

// Tool names exposed by the analytics tool-execution service.
const (
	ToolShowDailySales        = "show_daily_sales"
	ToolShowTopItems          = "show_top_items"
	ToolShowCategoryBreakdown = "show_category_breakdown"
	ToolGetTotalSales         = "get_total_sales"
	ToolFindPeakDay           = "find_peak_day"
	ToolCompareDayTypes       = "compare_day_types"
	ToolTrackItemPerformance  = "track_item_performance"
	ToolComparePeriods        = "compare_periods"
)

type toolSpec struct {
	name   string
	desc   string
	params map[string]*schema.ParameterInfo
}

func tenantParam() *schema.ParameterInfo {
	return &schema.ParameterInfo{
		Type:     schema.String,
		Desc:     "Tenant identifier of the restaurant whose data is queried",
		Required: true,
	}
}

func dateParam(desc string) *schema.ParameterInfo {
	return &schema.ParameterInfo{
		Type:     schema.String,
		Desc:     desc + " in YYYY-MM-DD format",
		Required: true,
	}
}

func categoryParam() *schema.ParameterInfo {
	return &schema.ParameterInfo{
		Type: schema.String,
		Desc: "Optional category filter. Primary categories carry parentheses, e.g. (Beer), (Sushi), (Food); subcategories do not, e.g. Draft Beer, Signature Rolls",
	}
}

func catalogSpecs() []toolSpec {
	return []toolSpec{
		{
			name: ToolShowDailySales,
			desc: "Daily sales breakdown for a date range",
			params: map[string]*schema.ParameterInfo{
				"tenantId":  tenantParam(),
				"startDate": dateParam("Range start date"),
				"endDate":   dateParam("Range end date"),
				"category":  categoryParam(),
			},
		},
		{
			name: ToolShowTopItems,
			desc: "Top N best-selling items by revenue",
			params: map[string]*schema.ParameterInfo{
				"tenantId":  tenantParam(),
				"limit":     {Type: schema.Integer, Desc: "Number of items to return, between 1 and 1000", Required: true},
				"startDate": dateParam("Range start date"),
				"endDate":   dateParam("Range end date"),
				"category":  categoryParam(),
			},
		},
		{
			name: ToolShowCategoryBreakdown,
			desc: "Sales grouped by primary category",
			params: map[string]*schema.ParameterInfo{
				"tenantId":  tenantParam(),
				"startDate": dateParam("Range start date"),
				"endDate":   dateParam("Range end date"),
				"includeBeer": {
					Type: schema.Boolean,
					Desc: "Whether beer categories are included (default true)",
				},
			},
		},
		{
			name: ToolGetTotalSales,
			desc: "Total sales for a period as a single aggregate",
			params: map[string]*schema.ParameterInfo{
				"tenantId":  tenantParam(),
				"startDate": dateParam("Range start date"),
				"endDate":   dateParam("Range end date"),
				"category":  categoryParam(),
			},
		},
		{
			name: ToolFindPeakDay,
			desc: "Find the highest or lowest sales day in a range",
			params: map[string]*schema.ParameterInfo{
				"tenantId":  tenantParam(),
				"startDate": dateParam("Range start date"),
				"endDate":   dateParam("Range end date"),
				"type": {
					Type:     schema.String,
					Desc:     "Which extreme to find",
					Enum:     []string{"highest", "lowest"},
					Required: true,
				},
				"category": categoryParam(),
			},
		},
		{
			name: ToolCompareDayTypes,
			desc: "Compare weekday and weekend sales",
			params: map[string]*schema.ParameterInfo{
				"tenantId":  tenantParam(),
				"startDate": dateParam("Range start date"),
				"endDate":   dateParam("Range end date"),
				"comparison": {
					Type:     schema.String,
					Desc:     "Comparison mode",
					Enum:     []string{"weekday_vs_weekend", "by_day_of_week"},
					Required: true,
				},
				"category": categoryParam(),
			},
		},
		{
			name: ToolTrackItemPerformance,
			desc: "Track one menu item's sales over time. Item names are fuzzy-matched",
			params: map[string]*schema.ParameterInfo{
				"tenantId":  tenantParam(),
				"itemName":  {Type: schema.String, Desc: "Menu item name, fuzzy-matched against the menu", Required: true},
				"startDate": dateParam("Range start date"),
				"endDate":   dateParam("Range end date"),
			},
		},
		{
			name: ToolComparePeriods,
			desc: "Compare sales between two time periods",
			params: map[string]*schema.ParameterInfo{
				"tenantId":   tenantParam(),
				"startDate1": dateParam("First period start date"),
				"endDate1":   dateParam("First period end date"),
				"startDate2": dateParam("Second period start date"),
				"endDate2":   dateParam("Second period end date"),
				"category":   categoryParam(),
				"itemName":   {Type: schema.String, Desc: "Optional menu item filter"},
			},
		},
	}
}

// Catalog returns descriptors for every analytics tool, ready to bind to a
// tool-calling chat model.
func Catalog() []*schema.ToolInfo {
	specs := catalogSpecs()
	infos := make([]*schema.ToolInfo, 0, len(specs))
	for _, s := range specs {
		infos = append(infos, &schema.ToolInfo{
			Name:        s.name,
			Desc:        s.desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(s.params),
		})
	}
	return infos
}

// Descriptors converts the catalog into the wire descriptor shape used by the
// tool-execution service, for the degraded path where remote listing fails.
func Descriptors() []model.ToolDescriptor {
	specs := catalogSpecs()
	descs := make([]model.ToolDescriptor, 0, len(specs))
	for _, s := range specs {
		descs = append(descs, model.ToolDescriptor{
			Name:            s.name,
			Description:     s.desc,
			ParameterSchema: parameterSchemaJSON(s.params),
		})
	}
	return descs
}

// Names returns the set of tool names for quick membership checks.
func Names(descs []model.ToolDescriptor) map[string]bool {
	names := make(map[string]bool, len(descs))
	for _, d := range descs {
		names[d.Name] = true
	}
	return names
}

func parameterSchemaJSON(params map[string]*schema.ParameterInfo) json.RawMessage {
	properties := make(map[string]any, len(params))
	required := []string{}
	for name, p := range params {
		prop := map[string]any{"type": string(p.Type)}
		if p.Desc != "" {
			prop["description"] = p.Desc
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[name] = prop
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	b, err := json.Marshal(map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	})
	if err != nil {
		return nil
	}
	return b
}
