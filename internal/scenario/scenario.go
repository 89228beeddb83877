// Package scenario drives one load batch end to end: optional seeding,
// the concurrent batch itself, threshold checks and cleanup of everything
// the batch created.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studiowebux/apiharness/internal/config"
	"github.com/studiowebux/apiharness/internal/stresstest"
	"github.com/studiowebux/apiharness/internal/usersapi"
)

// Report statuses
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// SkipReason is reported when no endpoint is configured
const SkipReason = config.EnvEndpoint + " not set"

// ErrSetup wraps failures of a scenario's seeding step
var ErrSetup = errors.New("scenario setup failed")

// TaskFactory builds the request task of a scenario
type TaskFactory func(users *usersapi.Client) stresstest.Task

// SetupFunc prepares data before the batch. Resources it creates must be
// registered with the cleaner.
type SetupFunc func(ctx context.Context, users *usersapi.Client, cleaner *stresstest.Cleaner) error

// Scenario is one named load batch with its pass/fail limits
type Scenario struct {
	Name         string
	Description  string
	Requests     int
	Workers      int
	Thresholds   stresstest.Thresholds
	TrackCreated bool // register the PayloadField of successful results for cleanup
	Setup        SetupFunc
	Task         TaskFactory
}

// Env carries what a scenario needs from its surroundings
type Env struct {
	Users          *usersapi.Client // nil when no endpoint is configured
	Journal        *stresstest.Journal
	Metrics        *stresstest.Metrics
	Logger         zerolog.Logger
	CleanupTimeout time.Duration
}

// Report is the outcome of one scenario run
type Report struct {
	ID         string                       `json:"id" yaml:"id"`
	Name       string                       `json:"name" yaml:"name"`
	Status     string                       `json:"status" yaml:"status"`
	Reason     string                       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Requests   int                          `json:"requests" yaml:"requests"`
	Workers    int                          `json:"workers" yaml:"workers"`
	Successes  int                          `json:"successes" yaml:"successes"`
	Stats      *stresstest.AggregateStats   `json:"stats,omitempty" yaml:"stats,omitempty"`
	Thresholds stresstest.Thresholds        `json:"thresholds" yaml:"thresholds"`
	Violations []*stresstest.ThresholdError `json:"violations,omitempty" yaml:"violations,omitempty"`
	Cleanup    stresstest.CleanupReport     `json:"cleanup" yaml:"cleanup"`
	JournalRun int64                        `json:"journalRun,omitempty" yaml:"journalRun,omitempty"`
	StartedAt  time.Time                    `json:"startedAt" yaml:"startedAt"`
	Elapsed    time.Duration                `json:"elapsed" yaml:"elapsed"`
	Err        error                        `json:"-" yaml:"-"`
}

// Failed reports whether the scenario failed
func (r *Report) Failed() bool {
	return r.Status == StatusFailed
}

// Configure returns a copy of the scenario with non-zero overrides applied
func (s Scenario) Configure(o config.ScenarioSettings) *Scenario {
	if o.Requests > 0 {
		s.Requests = o.Requests
	}
	if o.Workers > 0 {
		s.Workers = o.Workers
	}
	if o.MaxMeanLatency > 0 {
		s.Thresholds.MaxMeanLatency = o.MaxMeanLatency
	}
	if o.MaxSingleLatency > 0 {
		s.Thresholds.MaxSingleLatency = o.MaxSingleLatency
	}
	return &s
}

// Run executes the scenario. Resources created by the setup step and, when
// TrackCreated is set, by the batch are deleted before Run returns whatever
// the outcome.
func (s *Scenario) Run(ctx context.Context, env Env) (report *Report) {
	logger := env.Logger.With().Str("scenario", s.Name).Logger()

	report = &Report{
		ID:         uuid.NewString(),
		Name:       s.Name,
		Requests:   s.Requests,
		Workers:    (&stresstest.Config{ConcurrentConns: s.Workers}).GetConcurrentConns(),
		Thresholds: s.Thresholds,
		StartedAt:  time.Now(),
	}
	defer func() {
		report.Elapsed = time.Since(report.StartedAt)
	}()

	if env.Users == nil {
		report.Status = StatusSkipped
		report.Reason = SkipReason
		logger.Info().Msg("Scenario skipped: " + SkipReason)
		return report
	}

	deleteUser := func(ctx context.Context, id string) error {
		_, err := env.Users.DeleteUser(ctx, id)
		return err
	}
	cleaner := stresstest.NewCleaner(deleteUser,
		stresstest.WithCleanupConcurrency(s.Workers),
		stresstest.WithCleanupLogger(logger),
		stresstest.WithCleanupMetrics(env.Metrics, s.Name),
	)
	defer func() {
		timeout := env.CleanupTimeout
		if timeout <= 0 {
			timeout = config.DefaultCleanupTimeout
		}
		// Cleanup still runs when the caller's context is already done
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		report.Cleanup = cleaner.Release(cleanupCtx)
	}()

	if s.Setup != nil {
		if err := s.Setup(ctx, env.Users, cleaner); err != nil {
			return s.fail(report, logger, fmt.Errorf("%w: %w", ErrSetup, err))
		}
	}

	runner, err := stresstest.NewRunner(&stresstest.Config{Name: s.Name, ConcurrentConns: s.Workers},
		stresstest.WithJournal(env.Journal),
		stresstest.WithMetrics(env.Metrics),
		stresstest.WithLogger(logger),
	)
	if err != nil {
		return s.fail(report, logger, err)
	}

	results := runner.Run(ctx, stresstest.Repeat(s.Requests, s.Task(env.Users)))
	if run := runner.GetRun(); run != nil {
		report.JournalRun = run.ID
	}
	if s.TrackCreated {
		cleaner.RegisterResults(results)
	}

	report.Successes = stresstest.CountSuccesses(results)
	stats, err := stresstest.Aggregate(results)
	if err != nil {
		countErr := stresstest.CheckSuccessCount(report.Successes, s.Requests)
		report.Violations = stresstest.Violations(countErr)
		return s.fail(report, logger, errors.Join(err, countErr))
	}
	report.Stats = stats

	if err := s.Thresholds.Check(stats, s.Requests); err != nil {
		report.Violations = stresstest.Violations(err)
		return s.fail(report, logger, err)
	}

	report.Status = StatusPassed
	logger.Info().
		Int("requests", s.Requests).
		Dur("mean", stats.MeanLatency).
		Dur("median", stats.MedianLatency).
		Dur("max", stats.MaxLatency).
		Msg("Scenario passed")

	return report
}

func (s *Scenario) fail(report *Report, logger zerolog.Logger, err error) *Report {
	report.Status = StatusFailed
	report.Err = err
	report.Reason = err.Error()
	logger.Error().Err(err).Msg("Scenario failed")
	return report
}
