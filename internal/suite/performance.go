package suite

import (
	"context"
	"fmt"
	"strings"

	"github.com/studiowebux/apiharness/internal/scenario"
)

// Performance runs load scenarios one after another
type Performance struct {
	Scenarios []*scenario.Scenario
	Env       scenario.Env // Env.Users nil skips the suite
}

// Name implements Suite
func (p *Performance) Name() string {
	return NamePerformance
}

// Run implements Suite
func (p *Performance) Run(ctx context.Context) *Result {
	if p.Env.Users == nil {
		return skipped(NamePerformance, scenario.SkipReason)
	}

	result := &Result{Name: NamePerformance, Status: StatusPassed}
	var failed []string

	for _, s := range p.Scenarios {
		report := s.Run(ctx, p.Env)
		result.Scenarios = append(result.Scenarios, report)
		if report.Failed() {
			failed = append(failed, s.Name)
		}
	}

	if len(failed) > 0 {
		result.Status = StatusFailed
		result.Reason = fmt.Sprintf("failed scenarios: %s", strings.Join(failed, ", "))
	}
	return result
}
