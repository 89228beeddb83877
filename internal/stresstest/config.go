package stresstest

import (
	"fmt"
	"time"
)

const (
	// DefaultConcurrentConns is the worker pool width used when none is configured
	DefaultConcurrentConns = 5
	// MaxConcurrentConns caps the worker pool width
	MaxConcurrentConns = 1000
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
)

// Config represents a runner configuration
type Config struct {
	Name            string // Scenario name, used as metrics label and journal key
	ConcurrentConns int    // Worker pool width (default: 5)
}

// Run represents the journal record of one batch execution
type Run struct {
	ID                     int64
	Name                   string
	StartedAt              time.Time
	CompletedAt            *time.Time
	Status                 string // "running", "completed"
	Workers                int
	TotalRequestsSent      int
	TotalRequestsCompleted int
	TotalSuccesses         int
	TotalFailures          int // completed with a non-200 status
	TotalErrors            int // transport errors and task panics
	AvgDurationMs          float64
	MinDurationMs          float64
	MaxDurationMs          float64
	P50DurationMs          float64
	P95DurationMs          float64
	P99DurationMs          float64
}

// Metric represents a single request in the journal
type Metric struct {
	ID           int64
	RunID        int64
	SequenceNum  int
	Timestamp    time.Time
	ElapsedMs    float64
	StatusCode   int
	DurationMs   float64
	ResponseSize int64
	PayloadField string
	ErrorMessage string
}

// Validate validates the runner configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config name is required")
	}
	if c.ConcurrentConns < 0 {
		return fmt.Errorf("concurrent connections cannot be negative")
	}
	if c.ConcurrentConns > MaxConcurrentConns {
		return fmt.Errorf("concurrent connections cannot exceed %d", MaxConcurrentConns)
	}
	return nil
}

// GetConcurrentConns returns the worker pool width, applying the default
func (c *Config) GetConcurrentConns() int {
	if c.ConcurrentConns == 0 {
		return DefaultConcurrentConns
	}
	return c.ConcurrentConns
}

// IsRunning returns true if the run is currently in progress
func (r *Run) IsRunning() bool {
	return r.Status == RunStatusRunning
}

// IsCompleted returns true if the run has finished
func (r *Run) IsCompleted() bool {
	return r.Status == RunStatusCompleted
}
