package app

import (
	"changeimpact/internal/core/ports"
	"changeimpact/internal/engine/risk"
	"sync"
)

const (
	DefaultHistoryCapacity = 100
	recentHighLimit        = 5
)

// History is a fixed-capacity ring of results. The oldest entry is evicted
// when a new one arrives at capacity.
type History struct {
	mu    sync.RWMutex
	items []ports.AnalysisResult
	next  int
	size  int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{items: make([]ports.AnalysisResult, capacity)}
}

func (h *History) Add(result ports.AnalysisResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items[h.next] = result
	h.next = (h.next + 1) % len(h.items)
	if h.size < len(h.items) {
		h.size++
	}
}

// List returns up to limit results, newest first. A non-positive limit
// returns everything held.
func (h *History) List(limit int) []ports.AnalysisResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > h.size {
		limit = h.size
	}
	out := make([]ports.AnalysisResult, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *History) Capacity() int {
	return len(h.items)
}

type RiskSummary struct {
	High       int                    `json:"high"`
	Medium     int                    `json:"medium"`
	Low        int                    `json:"low"`
	Total      int                    `json:"total"`
	RecentHigh []ports.AnalysisResult `json:"recentHigh"`
}

// Summary buckets the held results by risk level and keeps the most recent
// high-risk entries.
func (h *History) Summary() RiskSummary {
	summary := RiskSummary{RecentHigh: []ports.AnalysisResult{}}
	for _, r := range h.List(0) {
		switch risk.LevelFor(r.RiskScore) {
		case risk.LevelHigh:
			summary.High++
			if len(summary.RecentHigh) < recentHighLimit {
				summary.RecentHigh = append(summary.RecentHigh, r)
			}
		case risk.LevelMedium:
			summary.Medium++
		default:
			summary.Low++
		}
		summary.Total++
	}
	return summary
}
