package utils

import (
	"sync"

	"request-monitor/src/models"
)

// -----------------------------------------------------------------------------
// RenderHistory is a fixed-size circular buffer of recent page renders.
// Oldest entries are overwritten once full.
// -----------------------------------------------------------------------------

type RenderHistory struct {
	mu       sync.RWMutex
	data     []models.MRenderMetrics
	capacity int
	index    int // Next write position
	size     int
}

// -----------------------------------------------------------------------------

func NewRenderHistory(capacity int) *RenderHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}

	return &RenderHistory{
		data:     make([]models.MRenderMetrics, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

func (rh *RenderHistory) Append(m models.MRenderMetrics) {
	rh.mu.Lock()
	defer rh.mu.Unlock()

	rh.data[rh.index] = m
	rh.index = (rh.index + 1) % rh.capacity
	if rh.size < rh.capacity {
		rh.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns up to n most recent renders, oldest first.
func (rh *RenderHistory) GetLatest(n int) []models.MRenderMetrics {
	rh.mu.RLock()
	defer rh.mu.RUnlock()

	if rh.size == 0 || n <= 0 {
		return []models.MRenderMetrics{}
	}

	count := n
	if count > rh.size {
		count = rh.size
	}

	result := make([]models.MRenderMetrics, count)
	startIdx := (rh.index - count + rh.capacity) % rh.capacity
	for i := 0; i < count; i++ {
		result[i] = rh.data[(startIdx+i)%rh.capacity]
	}
	return result
}

// -----------------------------------------------------------------------------

// GetAll returns every stored render, oldest first.
func (rh *RenderHistory) GetAll() []models.MRenderMetrics {
	return rh.GetLatest(rh.Capacity())
}

// -----------------------------------------------------------------------------

// PageStats summarises the stored renders of one page.
func (rh *RenderHistory) PageStats(page string) (renders int, failures int, avgSeconds float64) {
	rh.mu.RLock()
	defer rh.mu.RUnlock()

	total := 0.0
	for i := 0; i < rh.size; i++ {
		m := rh.data[i]
		if m.Page != page {
			continue
		}
		renders++
		total += m.RenderSeconds
		if m.Failed {
			failures++
		}
	}
	if renders > 0 {
		avgSeconds = total / float64(renders)
	}
	return renders, failures, avgSeconds
}

// -----------------------------------------------------------------------------

func (rh *RenderHistory) Size() int {
	rh.mu.RLock()
	defer rh.mu.RUnlock()
	return rh.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rh *RenderHistory) Capacity() int {
	return rh.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rh *RenderHistory) Clear() {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.index = 0
	rh.size = 0
}
