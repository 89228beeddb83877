/*
Package stresstest runs batches of requests concurrently and judges them.

# Overview

A batch is a list of tasks. Each task issues one request and returns the
HTTP adapter's result. The package provides:
  - Runner (runner.go): bounded worker pool, one result per task
  - Stats (stats.go): success counting and latency aggregation
  - Thresholds (thresholds.go): pass/fail assertions over a batch
  - Cleaner (cleanup.go): best-effort deletion of created resources
  - Journal (journal.go): SQLite record of runs and per-request metrics
  - Metrics (metrics.go): Prometheus counters and histograms

# Runner Design

The Runner queues every task up front and starts min(W, N) workers:
  - At most W tasks are in flight at any instant
  - A task error or panic becomes a result with StatusCode 0
  - Results arrive in completion order and carry their SequenceNum
  - An empty batch returns an empty slice without starting workers

# Statistics

Latency figures only cover successful requests (status 200, no error).
Aggregating a batch with no success returns ErrEmptyData instead of zeros.
The median interpolates between the two middle samples.

# Example Usage

	runner, err := NewRunner(&Config{Name: "get-users", ConcurrentConns: 5})
	if err != nil {
		return err
	}

	results := runner.Run(ctx, Repeat(20, func(ctx context.Context) (*types.RequestResult, error) {
		return users.ListUsers(ctx)
	}))

	stats, err := Aggregate(results)
	if err != nil {
		return err
	}
	if err := (Thresholds{MaxMeanLatency: time.Second}).Check(stats, 20); err != nil {
		for _, v := range Violations(err) {
			fmt.Println(v)
		}
	}

# Thread Safety

Runner.Run calls are serialized. GetStats may be called concurrently with a
running batch. Cleaner.Register is safe from any goroutine.
*/
package stresstest
