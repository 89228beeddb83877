package stresstest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/studiowebux/apiharness/internal/types"
)

const metricsBufferSize = 100

// ErrNoResult is recorded when a task returns neither a result nor an error
var ErrNoResult = errors.New("task returned no result")

// Task issues one request. Any error it returns is captured in the task's
// result; it never aborts the batch.
type Task func(ctx context.Context) (*types.RequestResult, error)

// RequestTask represents a single request to be executed
type RequestTask struct {
	SequenceNum int
	Task        Task
}

// RequestResult represents the outcome of one task
type RequestResult struct {
	SequenceNum  int
	StatusCode   int // 0 when no response was received
	Duration     time.Duration
	Elapsed      time.Duration // since the batch started
	ResponseSize int64
	PayloadField string
	Error        error
	Timestamp    time.Time
}

// PanicError wraps a value recovered from a panicking task
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Repeat returns n copies of task
func Repeat(n int, task Task) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = task
	}
	return tasks
}

// Runner executes batches of tasks on a bounded worker pool
type Runner struct {
	config  *Config
	journal *Journal
	metrics *Metrics
	logger  zerolog.Logger

	runMu sync.Mutex // serializes Run calls

	statsMu       sync.Mutex
	stats         *Stats
	run           *Run
	activeWorkers int32
	metricsBuf    []*Metric
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithJournal records every batch and its requests in j
func WithJournal(j *Journal) RunnerOption {
	return func(r *Runner) {
		r.journal = j
	}
}

// WithMetrics reports request outcomes to m
func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithLogger sets the runner logger
func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner for the given configuration
func NewRunner(config *Config, opts ...RunnerOption) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	r := &Runner{
		config: config,
		logger: log.Logger,
		stats:  NewStats(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("scenario", config.Name).Logger()

	return r, nil
}

// Run executes every task with at most ConcurrentConns in flight and
// returns one result per task, in completion order. Each result carries
// the SequenceNum of its task.
func (r *Runner) Run(ctx context.Context, tasks []Task) []*RequestResult {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	results := make([]*RequestResult, 0, len(tasks))

	r.statsMu.Lock()
	r.stats = NewStats()
	r.stats.TotalRequests = len(tasks)
	r.statsMu.Unlock()

	if len(tasks) == 0 {
		return results
	}

	workers := min(r.config.GetConcurrentConns(), len(tasks))
	testStart := time.Now()
	r.startRun(testStart, workers, len(tasks))

	// Every task is queued up front so workers never wait on a scheduler.
	requestChan := make(chan *RequestTask, len(tasks))
	for i, task := range tasks {
		requestChan <- &RequestTask{SequenceNum: i, Task: task}
	}
	close(requestChan)

	resultChan := make(chan *RequestResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range requestChan {
				resultChan <- r.execute(ctx, task, testStart)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for result := range resultChan {
		results = append(results, result)
		r.collect(result)
	}
	r.flushMetrics()
	r.finalize()

	r.logger.Debug().
		Int("requests", len(tasks)).
		Int("workers", workers).
		Dur("elapsed", time.Since(testStart)).
		Msg("Batch finished")

	return results
}

// execute runs one task, converting errors and panics into its result
func (r *Runner) execute(ctx context.Context, task *RequestTask, testStart time.Time) (result *RequestResult) {
	result = &RequestResult{SequenceNum: task.SequenceNum}

	atomic.AddInt32(&r.activeWorkers, 1)
	r.metrics.inFlight(r.config.Name, 1)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			result.StatusCode = 0
			result.PayloadField = ""
			result.Error = &PanicError{Value: p}
		}
		if result.Duration <= 0 {
			result.Duration = time.Since(start)
		}
		result.Timestamp = time.Now()
		result.Elapsed = time.Since(testStart)

		atomic.AddInt32(&r.activeWorkers, -1)
		r.metrics.inFlight(r.config.Name, -1)
	}()

	res, err := task.Task(ctx)
	if res != nil {
		result.StatusCode = res.Status
		result.Duration = res.Duration
		result.ResponseSize = int64(res.ResponseSize)
		result.PayloadField = res.PayloadField
	}
	switch {
	case err != nil:
		result.Error = err
	case res == nil:
		result.Error = ErrNoResult
	}

	return result
}

// collect folds one result into the statistics, metrics and journal buffer
func (r *Runner) collect(result *RequestResult) {
	r.statsMu.Lock()
	r.stats.AddResult(result)
	r.statsMu.Unlock()

	r.metrics.observe(r.config.Name, result)

	if result.Error != nil {
		r.logger.Debug().Err(result.Error).Int("seq", result.SequenceNum).Int("status", result.StatusCode).Msg("Request failed")
	}

	if r.run == nil {
		return
	}

	metric := &Metric{
		RunID:        r.run.ID,
		SequenceNum:  result.SequenceNum,
		Timestamp:    result.Timestamp,
		ElapsedMs:    durationMs(result.Elapsed),
		StatusCode:   result.StatusCode,
		DurationMs:   durationMs(result.Duration),
		ResponseSize: result.ResponseSize,
		PayloadField: result.PayloadField,
	}
	if result.Error != nil {
		metric.ErrorMessage = result.Error.Error()
	}

	r.metricsBuf = append(r.metricsBuf, metric)
	if len(r.metricsBuf) >= metricsBufferSize {
		r.flushMetrics()
	}
}

func (r *Runner) startRun(startedAt time.Time, workers, total int) {
	r.run = nil
	r.metricsBuf = r.metricsBuf[:0]
	if r.journal == nil {
		return
	}

	run := &Run{
		Name:              r.config.Name,
		StartedAt:         startedAt,
		Status:            RunStatusRunning,
		Workers:           workers,
		TotalRequestsSent: total,
	}
	if err := r.journal.CreateRun(run); err != nil {
		r.logger.Error().Err(err).Msg("Failed to create run record")
		return
	}
	r.run = run
}

// flushMetrics writes buffered metrics to the journal
func (r *Runner) flushMetrics() {
	if r.run == nil || len(r.metricsBuf) == 0 {
		return
	}

	if err := r.journal.SaveMetricsBatch(r.metricsBuf); err != nil {
		// Journal failures never affect the batch outcome
		r.logger.Error().Err(err).Int64("run_id", r.run.ID).Msg("Failed to save metrics")
	}

	r.metricsBuf = r.metricsBuf[:0]
}

// finalize completes the run record with final statistics
func (r *Runner) finalize() {
	if r.run == nil {
		return
	}

	r.statsMu.Lock()
	now := time.Now()
	r.run.CompletedAt = &now
	r.run.Status = RunStatusCompleted
	r.run.TotalRequestsCompleted = r.stats.CompletedRequests
	r.run.TotalSuccesses = r.stats.SuccessCount
	r.run.TotalFailures = r.stats.FailureCount
	r.run.TotalErrors = r.stats.ErrorCount
	r.run.AvgDurationMs = durationMs(r.stats.Mean())
	r.run.MinDurationMs = durationMs(r.stats.Min())
	r.run.MaxDurationMs = durationMs(r.stats.Max())
	r.run.P50DurationMs = durationMs(r.stats.P50())
	r.run.P95DurationMs = durationMs(r.stats.P95())
	r.run.P99DurationMs = durationMs(r.stats.P99())
	r.statsMu.Unlock()

	if err := r.journal.UpdateRun(r.run); err != nil {
		r.logger.Error().Err(err).Msg("Failed to update run record")
	}
}

// GetStats returns a snapshot of the current statistics (thread-safe)
func (r *Runner) GetStats() *Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	statsCopy := *r.stats
	statsCopy.ActiveWorkers = int(atomic.LoadInt32(&r.activeWorkers))
	statsCopy.Durations = make([]time.Duration, len(r.stats.Durations))
	copy(statsCopy.Durations, r.stats.Durations)

	return &statsCopy
}

// GetRun returns the journal record of the last batch, or nil when no
// journal is attached
func (r *Runner) GetRun() *Run {
	return r.run
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
