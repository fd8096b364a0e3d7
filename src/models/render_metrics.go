package models

// MRenderMetrics describes one page render.
type MRenderMetrics struct {
	Page          string  `json:"page"`
	Service       string  `json:"service"`
	RenderSeconds float64 `json:"render_seconds"`
	Queries       int     `json:"queries"`
	Buckets       int     `json:"buckets"`
	NoData        bool    `json:"no_data"`
	Failed        bool    `json:"failed"`
	Timestamp     int64   `json:"timestamp"`
}
