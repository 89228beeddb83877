// Package suite runs the unit, integration and performance suites in order
// and turns their outcome into a summary and an exit code.
package suite

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/studiowebux/apiharness/internal/scenario"
)

// Suite statuses
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Suite names, in run order
const (
	NameUnit        = "unit"
	NameIntegration = "integration"
	NamePerformance = "performance"
)

// Suite is one group of checks
type Suite interface {
	Name() string
	Run(ctx context.Context) *Result
}

// Step is one request of the integration round trip
type Step struct {
	Name    string        `json:"name" yaml:"name"`
	Status  int           `json:"status" yaml:"status"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Result is the outcome of one suite
type Result struct {
	Name      string             `json:"name" yaml:"name"`
	Status    string             `json:"status" yaml:"status"`
	Reason    string             `json:"reason,omitempty" yaml:"reason,omitempty"`
	Elapsed   time.Duration      `json:"elapsed" yaml:"elapsed"`
	Steps     []Step             `json:"steps,omitempty" yaml:"steps,omitempty"`
	Scenarios []*scenario.Report `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`
}

// Failed reports whether the suite failed
func (r *Result) Failed() bool {
	return r.Status == StatusFailed
}

func skipped(name, reason string) *Result {
	return &Result{Name: name, Status: StatusSkipped, Reason: reason}
}

// Summary collects the results of every suite
type Summary struct {
	Suites  []*Result     `json:"suites" yaml:"suites"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Passed is true when no suite failed. Skipped suites do not count as failures.
func (s *Summary) Passed() bool {
	for _, r := range s.Suites {
		if r.Failed() {
			return false
		}
	}
	return true
}

// ExitCode is 0 when every suite passed or was skipped, 1 otherwise
func (s *Summary) ExitCode() int {
	if s.Passed() {
		return 0
	}
	return 1
}

// Runner runs suites one after another
type Runner struct {
	suites []Suite
	logger zerolog.Logger
}

// NewRunner creates a runner over the given suites
func NewRunner(suites ...Suite) *Runner {
	return &Runner{suites: suites, logger: log.Logger}
}

// WithLogger sets the runner logger
func (r *Runner) WithLogger(logger zerolog.Logger) *Runner {
	r.logger = logger
	return r
}

// Run executes every suite, even after one fails
func (r *Runner) Run(ctx context.Context) *Summary {
	start := time.Now()
	summary := &Summary{Suites: make([]*Result, 0, len(r.suites))}

	for _, s := range r.suites {
		r.logger.Info().Str("suite", s.Name()).Msg("Running suite")

		suiteStart := time.Now()
		result := s.Run(ctx)
		if result.Name == "" {
			result.Name = s.Name()
		}
		result.Elapsed = time.Since(suiteStart)

		event := r.logger.Info()
		if result.Failed() {
			event = r.logger.Error()
		}
		event.Str("suite", result.Name).Str("status", result.Status).Str("reason", result.Reason).Msg("Suite finished")

		summary.Suites = append(summary.Suites, result)
	}

	summary.Elapsed = time.Since(start)
	return summary
}
