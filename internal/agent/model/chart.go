package model

// ChartDataset is one series within a chart.
type ChartDataset struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// ChartSpec describes a chart to render. Invariant: every dataset's Values
// length equals the Labels length, and Labels stays within the configured
// datapoint maximum so the rendered URL stays bounded.
type ChartSpec struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}
