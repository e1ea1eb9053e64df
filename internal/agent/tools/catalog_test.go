package tools

import (
	"encoding/json"
	"testing"
)

var allToolNames = []string{
	ToolShowDailySales,
	ToolShowTopItems,
	ToolShowCategoryBreakdown,
	ToolGetTotalSales,
	ToolFindPeakDay,
	ToolCompareDayTypes,
	ToolTrackItemPerformance,
	ToolComparePeriods,
}

func TestCatalogCoversAllTools(t *testing.T) {
	infos := Catalog()
	if len(infos) != len(allToolNames) {
		t.Fatalf("catalog has %d tools, want %d", len(infos), len(allToolNames))
	}
	byName := make(map[string]bool, len(infos))
	for _, info := range infos {
		if info.Desc == "" {
			t.Errorf("tool %s has no description", info.Name)
		}
		if info.ParamsOneOf == nil {
			t.Errorf("tool %s has no parameter schema", info.Name)
		}
		byName[info.Name] = true
	}
	for _, name := range allToolNames {
		if !byName[name] {
			t.Errorf("catalog missing tool %s", name)
		}
	}
}

func TestDescriptorsMirrorCatalog(t *testing.T) {
	descs := Descriptors()
	if len(descs) != len(allToolNames) {
		t.Fatalf("got %d descriptors, want %d", len(descs), len(allToolNames))
	}

	for _, d := range descs {
		var parsed struct {
			Type       string                    `json:"type"`
			Properties map[string]map[string]any `json:"properties"`
			Required   []string                  `json:"required"`
		}
		if err := json.Unmarshal(d.ParameterSchema, &parsed); err != nil {
			t.Fatalf("tool %s has invalid schema: %v", d.Name, err)
		}
		if parsed.Type != "object" {
			t.Errorf("tool %s schema type %q, want object", d.Name, parsed.Type)
		}
		if _, ok := parsed.Properties["tenantId"]; !ok {
			t.Errorf("tool %s schema missing tenantId", d.Name)
		}
		if len(parsed.Required) == 0 {
			t.Errorf("tool %s has no required parameters", d.Name)
		}
	}
}

func TestDescriptorRequiredParams(t *testing.T) {
	descs := Descriptors()
	required := func(name string) []string {
		for _, d := range descs {
			if d.Name != name {
				continue
			}
			var parsed struct {
				Required []string `json:"required"`
			}
			if err := json.Unmarshal(d.ParameterSchema, &parsed); err != nil {
				t.Fatalf("tool %s has invalid schema: %v", name, err)
			}
			return parsed.Required
		}
		t.Fatalf("tool %s not found", name)
		return nil
	}

	cases := map[string][]string{
		ToolShowTopItems:   {"endDate", "limit", "startDate", "tenantId"},
		ToolComparePeriods: {"endDate1", "endDate2", "startDate1", "startDate2", "tenantId"},
		ToolFindPeakDay:    {"endDate", "startDate", "tenantId", "type"},
	}
	for name, want := range cases {
		got := required(name)
		if len(got) != len(want) {
			t.Errorf("tool %s required = %v, want %v", name, got, want)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("tool %s required = %v, want %v", name, got, want)
				break
			}
		}
	}
}

func TestNames(t *testing.T) {
	names := Names(Descriptors())
	if !names[ToolGetTotalSales] {
		t.Errorf("expected %s in name set", ToolGetTotalSales)
	}
	if names["bogus_tool"] {
		t.Error("unexpected name in set")
	}
}
