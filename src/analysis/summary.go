package analysis

import (
	"math"

	"request-monitor/src/models"
)

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and population standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varianceSum / float64(len(data)))
}

// -----------------------------------------------------------------------------

// Summarize returns min, max, mean, stddev and total of a plotted series.
// Zero-filled buckets count as observations.
func Summarize(values []float64) models.MSeriesSummary {
	if len(values) == 0 {
		return models.MSeriesSummary{}
	}

	s := models.MSeriesSummary{Min: values[0], Max: values[0]}
	for _, v := range values {
		s.Total += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Avg, s.StdDev = CalculateMeanStd(values)
	return s
}
