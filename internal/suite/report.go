package suite

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/studiowebux/apiharness/internal/executor"
	"github.com/studiowebux/apiharness/internal/scenario"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const bannerWidth = 50

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	passedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	reasonStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var suiteTitles = map[string]string{
	NameUnit:        "Unit Tests",
	NameIntegration: "Integration Tests",
	NamePerformance: "Performance Tests",
}

// IsValidFormat reports whether format is a supported output format
func IsValidFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// PrintBanner writes the header shown before the suites start
func PrintBanner(w io.Writer) {
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, titleStyle.Render("Running Users API Test Suite"))
	fmt.Fprintln(w, rule)
}

// Write renders the summary in the requested format
func Write(w io.Writer, summary *Summary, format string) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case FormatYAML:
		data, err := yaml.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		_, err = w.Write(data)
		return err

	case FormatText, "":
		WriteText(w, summary)
		return nil

	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteText prints one status line per suite and a latency table per
// performance scenario
func WriteText(w io.Writer, summary *Summary) {
	for _, r := range summary.Suites {
		for _, report := range r.Scenarios {
			writeScenario(w, report)
		}
	}

	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, titleStyle.Render("Test Results:"))
	for _, r := range summary.Suites {
		line := fmt.Sprintf("%s: %s", suiteTitle(r.Name), statusLabel(r.Status))
		if r.Reason != "" && r.Status != StatusPassed {
			line += " " + reasonStyle.Render("("+r.Reason+")")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, rule)
}

func writeScenario(w io.Writer, report *scenario.Report) {
	fmt.Fprintf(w, "\n%s %s\n", titleStyle.Render(report.Name), statusLabel(report.Status))

	if report.Stats != nil {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{
			text.FgHiCyan.Sprint("REQUESTS"),
			text.FgHiCyan.Sprint("OK"),
			text.FgHiCyan.Sprint("MEAN"),
			text.FgHiCyan.Sprint("MEDIAN"),
			text.FgHiCyan.Sprint("P95"),
			text.FgHiCyan.Sprint("MAX"),
		})
		t.AppendRow(table.Row{
			report.Requests,
			report.Successes,
			executor.FormatDuration(report.Stats.MeanLatency),
			executor.FormatDuration(report.Stats.MedianLatency),
			executor.FormatDuration(report.Stats.P95Latency),
			executor.FormatDuration(report.Stats.MaxLatency),
		})
		t.Render()
	}

	for _, v := range report.Violations {
		fmt.Fprintf(w, "  %s %s\n", failedStyle.Render("✗"), v.Error())
	}
	if report.Reason != "" && len(report.Violations) == 0 && report.Status != scenario.StatusPassed {
		fmt.Fprintf(w, "  %s\n", reasonStyle.Render(report.Reason))
	}
	if report.Cleanup.Attempted > 0 {
		fmt.Fprintf(w, "  cleanup: %d/%d deleted\n", report.Cleanup.Deleted, report.Cleanup.Attempted)
	}
}

func suiteTitle(name string) string {
	if title, ok := suiteTitles[name]; ok {
		return title
	}
	return name
}

func statusLabel(status string) string {
	switch status {
	case StatusPassed:
		return passedStyle.Render("PASSED")
	case StatusFailed:
		return failedStyle.Render("FAILED")
	default:
		return skippedStyle.Render("SKIPPED")
	}
}
