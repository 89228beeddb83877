package stresstest

import (
	"errors"
	"net/http"
	"sort"
	"time"
)

// ErrEmptyData is returned when statistics are requested over zero successful
// samples. Reporting zeros there would turn a total failure into a fast pass.
var ErrEmptyData = errors.New("no successful requests to compute latency statistics")

// AggregateStats summarizes one batch of results
type AggregateStats struct {
	Total         int           `json:"total" yaml:"total"`
	SuccessCount  int           `json:"successCount" yaml:"successCount"`
	FailureCount  int           `json:"failureCount" yaml:"failureCount"`
	ErrorCount    int           `json:"errorCount" yaml:"errorCount"`
	MeanLatency   time.Duration `json:"meanLatency" yaml:"meanLatency"`
	MedianLatency time.Duration `json:"medianLatency" yaml:"medianLatency"`
	MinLatency    time.Duration `json:"minLatency" yaml:"minLatency"`
	MaxLatency    time.Duration `json:"maxLatency" yaml:"maxLatency"`
	P95Latency    time.Duration `json:"p95Latency" yaml:"p95Latency"`
	P99Latency    time.Duration `json:"p99Latency" yaml:"p99Latency"`
}

// Stats holds runtime statistics for a batch. Latency figures only cover
// successful requests.
type Stats struct {
	TotalRequests     int
	CompletedRequests int
	ErrorCount        int // Transport errors and task panics
	FailureCount      int // Completed with a status other than 200
	SuccessCount      int
	ActiveWorkers     int             // Current number of workers actively executing requests
	Durations         []time.Duration // Successful request durations, for percentiles
	TotalDuration     time.Duration
	MinDuration       time.Duration
	MaxDuration       time.Duration
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{
		Durations:   make([]time.Duration, 0, 64),
		MinDuration: -1,
		MaxDuration: -1,
	}
}

// AddResult adds a request result to the statistics
func (s *Stats) AddResult(r *RequestResult) {
	s.CompletedRequests++

	switch {
	case r.Error != nil && r.StatusCode == 0:
		s.ErrorCount++
		return
	case !r.Succeeded():
		s.FailureCount++
		return
	}

	s.SuccessCount++
	s.TotalDuration += r.Duration
	s.Durations = append(s.Durations, r.Duration)

	if s.MinDuration == -1 || r.Duration < s.MinDuration {
		s.MinDuration = r.Duration
	}
	if s.MaxDuration == -1 || r.Duration > s.MaxDuration {
		s.MaxDuration = r.Duration
	}
}

// Mean returns the average successful duration, or 0 if no results
func (s *Stats) Mean() time.Duration {
	if s.SuccessCount == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.SuccessCount)
}

// Min returns the minimum duration, or 0 if no results
func (s *Stats) Min() time.Duration {
	if s.MinDuration == -1 {
		return 0
	}
	return s.MinDuration
}

// Max returns the maximum duration, or 0 if no results
func (s *Stats) Max() time.Duration {
	if s.MaxDuration == -1 {
		return 0
	}
	return s.MaxDuration
}

// Percentile calculates the percentile value (p should be between 0 and 100)
func (s *Stats) Percentile(p float64) time.Duration {
	if len(s.Durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(s.Durations))
	copy(sorted, s.Durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation between lower and upper
	weight := index - float64(lower)
	if weight == 0 {
		return sorted[lower]
	}
	return time.Duration(float64(sorted[lower])*(1-weight) + float64(sorted[upper])*weight)
}

// P50 returns the 50th percentile (median)
func (s *Stats) P50() time.Duration {
	return s.Percentile(50)
}

// P95 returns the 95th percentile
func (s *Stats) P95() time.Duration {
	return s.Percentile(95)
}

// P99 returns the 99th percentile
func (s *Stats) P99() time.Duration {
	return s.Percentile(99)
}

// SuccessRate returns the success rate as a percentage
func (s *Stats) SuccessRate() float64 {
	if s.CompletedRequests == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.CompletedRequests) * 100
}

// ErrorRate returns the transport error rate as a percentage
func (s *Stats) ErrorRate() float64 {
	if s.CompletedRequests == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.CompletedRequests) * 100
}

// Progress returns the completion progress as a percentage
func (s *Stats) Progress() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.CompletedRequests) / float64(s.TotalRequests) * 100
}

// Aggregate freezes the statistics. It fails with ErrEmptyData when no
// request succeeded.
func (s *Stats) Aggregate() (*AggregateStats, error) {
	if s.SuccessCount == 0 {
		return nil, ErrEmptyData
	}

	return &AggregateStats{
		Total:         s.CompletedRequests,
		SuccessCount:  s.SuccessCount,
		FailureCount:  s.FailureCount,
		ErrorCount:    s.ErrorCount,
		MeanLatency:   s.Mean(),
		MedianLatency: s.P50(),
		MinLatency:    s.Min(),
		MaxLatency:    s.Max(),
		P95Latency:    s.P95(),
		P99Latency:    s.P99(),
	}, nil
}

// Aggregate computes statistics over a batch of results
func Aggregate(results []*RequestResult) (*AggregateStats, error) {
	stats := NewStats()
	stats.TotalRequests = len(results)
	for _, r := range results {
		stats.AddResult(r)
	}
	return stats.Aggregate()
}

// CountSuccesses returns the number of results with status 200 and no error
func CountSuccesses(results []*RequestResult) int {
	n := 0
	for _, r := range results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// Succeeded reports whether the request completed with status 200
func (r *RequestResult) Succeeded() bool {
	return r != nil && r.Error == nil && r.StatusCode == http.StatusOK
}
