package models

// MSeriesData is one plotted series, aligned with MChartPayload.Labels.
type MSeriesData struct {
	Name    string         `json:"name"`
	Label   string         `json:"label"`
	Unit    string         `json:"unit"`
	Axis    string         `json:"axis"`
	Values  []float64      `json:"values"`
	Summary MSeriesSummary `json:"summary"`
}

// MChartPayload is what the chart widget consumes.
// When NoData is set Labels and Series are empty and the page shows a placeholder.
type MChartPayload struct {
	Page       string        `json:"page"`
	Title      string        `json:"title"`
	Kind       string        `json:"kind"`
	Service    string        `json:"service"`
	Hours      int           `json:"hours"`
	NoData     bool          `json:"no_data"`
	Labels     []string      `json:"labels"`
	TickLabels []string      `json:"tick_labels"`
	Series     []MSeriesData `json:"series"`
	Tables     []MTableData  `json:"tables,omitempty"`
	Generated  int64         `json:"generated"`
}

// MTableData is a generic column/row result used by pie and table pages.
type MTableData struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}
