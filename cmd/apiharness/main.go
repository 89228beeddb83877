package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studiowebux/apiharness/internal/suite"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "apiharness",
	Short: "Users API test harness",
	Long: `apiharness runs the Users API test suites: unit tests, an integration
round trip and concurrent load scenarios with latency thresholds.

The integration and performance suites need API_ENDPOINT; without it they are
reported as skipped and only the unit suite decides the exit code.

Examples:
  apiharness                               # Run all suites
  API_ENDPOINT=https://api.example.com apiharness -o yaml
  apiharness load                          # Load scenarios only
  apiharness load -s get-users-performance # One scenario
  apiharness mock --port 8080              # Serve a fake Users API`,
	Version:      version,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAll(cmd)
	},
}

var loadCmd = &cobra.Command{
	Use:          "load",
	Short:        "Run the load scenarios only",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd)
	},
}

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Serve an in-memory Users API",
	Long: `Serve an in-memory Users API on PUT/GET /users and GET/DELETE /users/{id}.

Faults and latency can be injected from a YAML or JSON file, e.g.:

  port: 8080
  delay: 20
  faults:
    - route: create-user
      status: 500
      every: 10`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMock(cmd)
	},
}

// Flags shared by root and load
var (
	flagConfig      string
	flagOutput      string
	flagMetricsFile string
)

// Flags for load
var (
	flagScenarios []string
	flagBreakdown bool
)

// Flags for mock
var (
	flagMockConfig string
	flagMockHost   string
	flagMockPort   int
	flagMockDelay  int
	flagMockLog    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default: ./apiharness.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", suite.FormatText, "Output format (text/json/yaml)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")

	loadCmd.Flags().StringSliceVarP(&flagScenarios, "scenario", "s", nil, "Scenario to run, can be repeated (default: all)")
	loadCmd.Flags().BoolVar(&flagBreakdown, "breakdown", false, "Print the status code breakdown of each scenario")

	mockCmd.Flags().StringVarP(&flagMockConfig, "file", "f", "", "Mock server config file (yaml/json)")
	mockCmd.Flags().StringVar(&flagMockHost, "host", "", "Listen host (default: localhost)")
	mockCmd.Flags().IntVarP(&flagMockPort, "port", "p", 0, "Listen port (default: 8080)")
	mockCmd.Flags().IntVar(&flagMockDelay, "delay", 0, "Delay added to every request in milliseconds")
	mockCmd.Flags().BoolVar(&flagMockLog, "log-requests", false, "Log every request")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(mockCmd)
}
