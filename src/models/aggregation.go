package models

// MBucket is one x-axis category with a value per declared series.
type MBucket struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// MAggregatedTable is the dense output of the bucket aggregator.
type MAggregatedTable struct {
	Series      []string  `json:"series"`
	Buckets     []MBucket `json:"buckets"`
	TickIndices []int     `json:"tick_indices"`
	TickLabels  []string  `json:"tick_labels"`
}

// Labels returns the ordered bucket labels.
func (t *MAggregatedTable) Labels() []string {
	labels := make([]string, len(t.Buckets))
	for i, b := range t.Buckets {
		labels[i] = b.Label
	}
	return labels
}

// Column returns the values of the i-th declared series across all buckets.
func (t *MAggregatedTable) Column(i int) []float64 {
	col := make([]float64, len(t.Buckets))
	for j, b := range t.Buckets {
		col[j] = b.Values[i]
	}
	return col
}
