package models

// MSeriesSummary holds descriptive statistics of one plotted series.
type MSeriesSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	StdDev float64 `json:"stddev"`
	Total  float64 `json:"total"`
}
