package stresstest

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Metric names reported by threshold violations
const (
	MetricSuccessCount = "success_count"
	MetricMeanLatency  = "mean_latency"
	MetricMaxLatency   = "max_latency"
)

// ErrThresholdExceeded is matched by every ThresholdError
var ErrThresholdExceeded = errors.New("threshold exceeded")

// Thresholds are the pass/fail limits of a batch. A zero value disables the
// corresponding latency check.
type Thresholds struct {
	MaxMeanLatency   time.Duration `json:"maxMeanLatency,omitempty" yaml:"maxMeanLatency,omitempty" mapstructure:"max_mean_latency"`
	MaxSingleLatency time.Duration `json:"maxSingleLatency,omitempty" yaml:"maxSingleLatency,omitempty" mapstructure:"max_single_latency"`
}

// ThresholdError names the metric that regressed with its observed value and limit
type ThresholdError struct {
	Metric   string `json:"metric" yaml:"metric"`
	Observed string `json:"observed" yaml:"observed"`
	Op       string `json:"op" yaml:"op"` // "==" or "<"
	Limit    string `json:"limit" yaml:"limit"`
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%s: observed %s, expected %s %s", e.Metric, e.Observed, e.Op, e.Limit)
}

// Is makes errors.Is(err, ErrThresholdExceeded) true for any ThresholdError
func (e *ThresholdError) Is(target error) bool {
	return target == ErrThresholdExceeded
}

// CheckSuccessCount asserts that every request succeeded
func CheckSuccessCount(successes, expected int) error {
	if successes == expected {
		return nil
	}
	return &ThresholdError{
		Metric:   MetricSuccessCount,
		Observed: strconv.Itoa(successes),
		Op:       "==",
		Limit:    strconv.Itoa(expected),
	}
}

// Check asserts the success count and latency limits. Every violated
// property yields its own ThresholdError; they are joined into one error.
func (t Thresholds) Check(stats *AggregateStats, expected int) error {
	if stats == nil {
		return errors.Join(CheckSuccessCount(0, expected), ErrEmptyData)
	}

	var errs []error

	if err := CheckSuccessCount(stats.SuccessCount, expected); err != nil {
		errs = append(errs, err)
	}

	if t.MaxMeanLatency > 0 && stats.MeanLatency >= t.MaxMeanLatency {
		errs = append(errs, &ThresholdError{
			Metric:   MetricMeanLatency,
			Observed: formatSeconds(stats.MeanLatency),
			Op:       "<",
			Limit:    formatSeconds(t.MaxMeanLatency),
		})
	}

	if t.MaxSingleLatency > 0 && stats.MaxLatency >= t.MaxSingleLatency {
		errs = append(errs, &ThresholdError{
			Metric:   MetricMaxLatency,
			Observed: formatSeconds(stats.MaxLatency),
			Op:       "<",
			Limit:    formatSeconds(t.MaxSingleLatency),
		})
	}

	return errors.Join(errs...)
}

// Violations unpacks the ThresholdErrors contained in err
func Violations(err error) []*ThresholdError {
	switch e := err.(type) {
	case nil:
		return nil
	case *ThresholdError:
		return []*ThresholdError{e}
	case interface{ Unwrap() []error }:
		var out []*ThresholdError
		for _, inner := range e.Unwrap() {
			out = append(out, Violations(inner)...)
		}
		return out
	}

	var te *ThresholdError
	if errors.As(err, &te) {
		return []*ThresholdError{te}
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
