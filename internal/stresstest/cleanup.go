package stresstest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DeleteFunc removes one resource by identifier
type DeleteFunc func(ctx context.Context, id string) error

// CleanupReport summarizes one Release call
type CleanupReport struct {
	Attempted int `json:"attempted" yaml:"attempted"`
	Deleted   int `json:"deleted" yaml:"deleted"`
	Failed    int `json:"failed" yaml:"failed"`
}

// Cleaner tracks resources created during a batch and deletes them on
// Release. Deletion is best-effort: failures are logged, never returned.
type Cleaner struct {
	deleteFn DeleteFunc
	limit    int
	logger   zerolog.Logger
	metrics  *Metrics
	scenario string

	mu  sync.Mutex
	ids []string
}

// CleanerOption configures a Cleaner
type CleanerOption func(*Cleaner)

// WithCleanupConcurrency bounds the number of concurrent deletions
func WithCleanupConcurrency(n int) CleanerOption {
	return func(c *Cleaner) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithCleanupLogger sets the logger used to report failed deletions
func WithCleanupLogger(logger zerolog.Logger) CleanerOption {
	return func(c *Cleaner) {
		c.logger = logger
	}
}

// WithCleanupMetrics counts deletions in the given metrics under a scenario label
func WithCleanupMetrics(m *Metrics, scenario string) CleanerOption {
	return func(c *Cleaner) {
		c.metrics = m
		c.scenario = scenario
	}
}

// NewCleaner creates a cleaner around a delete function
func NewCleaner(deleteFn DeleteFunc, opts ...CleanerOption) *Cleaner {
	c := &Cleaner{
		deleteFn: deleteFn,
		limit:    DefaultConcurrentConns,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register tracks one resource. Empty identifiers are ignored.
func (c *Cleaner) Register(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.ids = append(c.ids, id)
	c.mu.Unlock()
}

// RegisterResults tracks the payload identifier of every successful result
func (c *Cleaner) RegisterResults(results []*RequestResult) {
	for _, r := range results {
		if r.Succeeded() {
			c.Register(r.PayloadField)
		}
	}
}

// Pending returns the identifiers not yet released
func (c *Cleaner) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, len(c.ids))
	copy(ids, c.ids)
	return ids
}

// Release issues one delete per tracked identifier and forgets them, so a
// second call does nothing. It never fails.
func (c *Cleaner) Release(ctx context.Context) CleanupReport {
	c.mu.Lock()
	ids := c.ids
	c.ids = nil
	c.mu.Unlock()

	report := CleanupReport{Attempted: len(ids)}
	if len(ids) == 0 {
		return report
	}

	var deleted, failed int64
	g := new(errgroup.Group)
	g.SetLimit(c.limit)

	for _, id := range ids {
		g.Go(func() error {
			if err := c.deleteOne(ctx, id); err != nil {
				atomic.AddInt64(&failed, 1)
				c.logger.Warn().Err(err).Str("id", id).Str("scenario", c.scenario).Msg("Cleanup delete failed")
				c.metrics.observeCleanup(c.scenario, false)
				return nil
			}
			atomic.AddInt64(&deleted, 1)
			c.metrics.observeCleanup(c.scenario, true)
			return nil
		})
	}
	g.Wait()

	report.Deleted = int(deleted)
	report.Failed = int(failed)

	c.logger.Debug().
		Str("scenario", c.scenario).
		Int("attempted", report.Attempted).
		Int("deleted", report.Deleted).
		Int("failed", report.Failed).
		Msg("Cleanup finished")

	return report
}

func (c *Cleaner) deleteOne(ctx context.Context, id string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("delete panicked: %v", p)
		}
	}()
	return c.deleteFn(ctx, id)
}
