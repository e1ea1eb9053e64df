// Package chart renders QuickChart URLs from tabular tool results. Chart
// generation is strictly best-effort; every failure path yields "no chart"
// rather than an error.
package chart

import (
	"encoding/json"
	"net/url"
	"sort"

	"github.com/fdsanalytics/analytics-agent/server/internal/agent/model"
	"github.com/fdsanalytics/analytics-agent/server/internal/agent/resilience"
	logx "github.com/fdsanalytics/analytics-agent/server/pkg/logger"
)

// Column names tried first when picking label and value columns from rows.
var (
	preferredLabelColumns = []string{"date", "day", "label", "name", "category", "item"}
	preferredValueColumns = []string{"revenue", "total", "sales", "value", "amount", "count"}
)

// Pipeline builds chart URLs behind a circuit breaker. Malformed specs are
// rejected before the breaker and never count against it.
type Pipeline struct {
	cfg     model.ChartConfig
	breaker *resilience.Breaker
}

func NewPipeline(cfg model.ChartConfig, breaker *resilience.Breaker) *Pipeline {
	return &Pipeline{cfg: cfg, breaker: breaker}
}

// Build returns the chart URL for spec, or "" when no chart can be produced.
func (p *Pipeline) Build(spec model.ChartSpec) string {
	if !p.validate(spec) {
		return ""
	}
	if !p.breaker.Allow() {
		logx.Warn().Str("title", spec.Title).Msg("Chart breaker open, skipping chart")
		return ""
	}

	u, err := p.render(spec)
	if err != nil {
		logx.Warn().Err(err).Str("title", spec.Title).Msg("Chart config encode failed")
		p.breaker.RecordFailure()
		return ""
	}
	if len(u) > p.cfg.MaxURLLength {
		logx.Warn().Int("length", len(u)).Int("max", p.cfg.MaxURLLength).Msg("Chart URL over length limit")
		p.breaker.RecordFailure()
		return ""
	}
	p.breaker.RecordSuccess()
	return u
}

func (p *Pipeline) validate(spec model.ChartSpec) bool {
	if spec.Type == "" || len(spec.Labels) == 0 || len(spec.Datasets) == 0 {
		return false
	}
	if len(spec.Labels) > p.cfg.MaxDataPoints {
		return false
	}
	for _, ds := range spec.Datasets {
		if len(ds.Values) != len(spec.Labels) {
			return false
		}
	}
	return true
}

func (p *Pipeline) render(spec model.ChartSpec) (string, error) {
	datasets := make([]map[string]any, 0, len(spec.Datasets))
	for _, ds := range spec.Datasets {
		datasets = append(datasets, map[string]any{
			"label": ds.Label,
			"data":  ds.Values,
		})
	}
	config := map[string]any{
		"type": spec.Type,
		"data": map[string]any{
			"labels":   spec.Labels,
			"datasets": datasets,
		},
		"options": map[string]any{
			"title": map[string]any{"display": spec.Title != "", "text": spec.Title},
		},
	}
	b, err := json.Marshal(config)
	if err != nil {
		return "", err
	}
	return p.cfg.BaseURL + "/chart?c=" + url.QueryEscape(string(b)), nil
}

// FromRows derives a bar chart spec from tabular rows: the first string-valued
// column becomes labels and the first numeric column the single dataset. It
// reports false when the rows are not chartable.
func FromRows(title string, rows []map[string]any, maxPoints int) (model.ChartSpec, bool) {
	if len(rows) == 0 || len(rows) > maxPoints {
		return model.ChartSpec{}, false
	}

	labelCol := pickColumn(rows[0], preferredLabelColumns, isString)
	valueCol := pickColumn(rows[0], preferredValueColumns, isNumeric)
	if labelCol == "" || valueCol == "" {
		return model.ChartSpec{}, false
	}

	spec := model.ChartSpec{
		Type:   "bar",
		Title:  title,
		Labels: make([]string, 0, len(rows)),
	}
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		label, ok := row[labelCol].(string)
		if !ok {
			return model.ChartSpec{}, false
		}
		value, ok := asFloat(row[valueCol])
		if !ok {
			return model.ChartSpec{}, false
		}
		spec.Labels = append(spec.Labels, label)
		values = append(values, value)
	}
	spec.Datasets = []model.ChartDataset{{Label: valueCol, Values: values}}
	return spec, true
}

// pickColumn chooses a column from row matching the predicate, preferring the
// well-known names before falling back to the first match in sorted order.
func pickColumn(row map[string]any, preferred []string, match func(any) bool) string {
	for _, name := range preferred {
		if v, ok := row[name]; ok && match(v) {
			return name
		}
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if match(row[k]) {
			return k
		}
	}
	return ""
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isNumeric(v any) bool {
	_, ok := asFloat(v)
	return ok
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
