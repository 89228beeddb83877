package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/studiowebux/apiharness/internal/config"
	"github.com/studiowebux/apiharness/internal/filter"
	"github.com/studiowebux/apiharness/internal/mock"
	"github.com/studiowebux/apiharness/internal/oauth"
	"github.com/studiowebux/apiharness/internal/scenario"
	"github.com/studiowebux/apiharness/internal/stresstest"
	"github.com/studiowebux/apiharness/internal/suite"
	"github.com/studiowebux/apiharness/internal/usersapi"
)

// harness holds what every suite run shares
type harness struct {
	settings *config.Settings
	env      scenario.Env
}

func setupLogging(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func newHarness() (_ *harness, err error) {
	if !suite.IsValidFormat(flagOutput) {
		return nil, fmt.Errorf("unknown output format %q (expected text, json or yaml)", flagOutput)
	}

	settings, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagMetricsFile != "" {
		settings.MetricsFile = flagMetricsFile
	}
	setupLogging(settings.Level())

	journal, err := stresstest.NewMemoryJournal()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			journal.Close()
		}
	}()

	h := &harness{
		settings: settings,
		env: scenario.Env{
			Journal:        journal,
			Metrics:        stresstest.NewMetrics(),
			Logger:         log.Logger,
			CleanupTimeout: settings.CleanupTimeout,
		},
	}

	if !settings.HasEndpoint() {
		log.Warn().Msg(config.EnvEndpoint + " not set, integration and performance suites will be skipped")
		return h, nil
	}

	idField, err := filter.Compile(settings.IDField)
	if err != nil {
		return nil, err
	}
	opts := settings.ExecutorOptions()
	if !settings.OAuth.IsZero() {
		source, err := oauth.TokenSource(context.Background(), &settings.OAuth)
		if err != nil {
			return nil, err
		}
		if _, err := oauth.FetchToken(source); err != nil {
			return nil, err
		}
		opts.TokenSource = source
		log.Info().Str("token_url", settings.OAuth.TokenURL).Msg("Using OAuth client credentials")
	}

	users, err := usersapi.NewFromEndpoint(settings.Endpoint, opts, usersapi.WithIDField(idField))
	if err != nil {
		return nil, err
	}
	h.env.Users = users

	log.Info().Str("endpoint", settings.Endpoint).Msg("Testing Users API")
	return h, nil
}

func (h *harness) close() {
	if err := h.env.Journal.Close(); err != nil {
		log.Debug().Err(err).Msg("Failed to close journal")
	}
}

// finish writes the summary and metrics, then exits with the summary's code
func (h *harness) finish(summary *suite.Summary) error {
	if h.settings.MetricsFile != "" {
		if err := h.env.Metrics.WriteTextfile(h.settings.MetricsFile); err != nil {
			log.Error().Err(err).Msg("Failed to write metrics")
		} else {
			log.Info().Str("path", h.settings.MetricsFile).Msg("Metrics written")
		}
	}

	if err := suite.Write(os.Stdout, summary, flagOutput); err != nil {
		return err
	}

	if code := summary.ExitCode(); code != 0 {
		h.close()
		os.Exit(code)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runAll runs unit, integration and performance suites in order
func runAll(cmd *cobra.Command) error {
	h, err := newHarness()
	if err != nil {
		return err
	}
	defer h.close()

	if flagOutput == suite.FormatText {
		suite.PrintBanner(os.Stdout)
	}

	runner := suite.NewRunner(
		&suite.Unit{Command: h.settings.UnitCommand, Stdout: os.Stderr, Stderr: os.Stderr},
		&suite.Integration{Users: h.env.Users, Logger: log.Logger, CleanupTimeout: h.settings.CleanupTimeout},
		&suite.Performance{Scenarios: scenario.Catalog(h.settings), Env: h.env},
	)

	return h.finish(runner.Run(commandContext(cmd)))
}

// runLoad runs the performance suite, optionally restricted to some scenarios
func runLoad(cmd *cobra.Command) error {
	h, err := newHarness()
	if err != nil {
		return err
	}
	defer h.close()

	scenarios := scenario.Catalog(h.settings)
	if len(flagScenarios) > 0 {
		scenarios = scenarios[:0:0]
		for _, name := range flagScenarios {
			s, ok := scenario.Lookup(h.settings, name)
			if !ok {
				return fmt.Errorf("unknown scenario %q", name)
			}
			scenarios = append(scenarios, s)
		}
	}

	summary := suite.NewRunner(&suite.Performance{Scenarios: scenarios, Env: h.env}).Run(commandContext(cmd))

	if flagBreakdown && flagOutput == suite.FormatText {
		h.printBreakdown(summary)
	}
	return h.finish(summary)
}

func (h *harness) printBreakdown(summary *suite.Summary) {
	for _, r := range summary.Suites {
		for _, report := range r.Scenarios {
			if report.JournalRun == 0 {
				continue
			}
			breakdown, err := h.env.Journal.StatusBreakdown(report.JournalRun)
			if err != nil {
				log.Error().Err(err).Str("scenario", report.Name).Msg("Failed to read status breakdown")
				continue
			}

			codes := make([]int, 0, len(breakdown))
			for code := range breakdown {
				codes = append(codes, code)
			}
			sort.Ints(codes)

			fmt.Printf("%s status codes:", report.Name)
			for _, code := range codes {
				label := fmt.Sprintf("%d", code)
				if code == 0 {
					label = "error"
				}
				fmt.Printf(" %s=%d", label, breakdown[code])
			}
			fmt.Println()
		}
	}
}

// runMock serves the fake Users API until interrupted
func runMock(cmd *cobra.Command) error {
	setupLogging(zerolog.InfoLevel)

	cfg := &mock.Config{}
	if flagMockConfig != "" {
		loaded, err := mock.LoadConfig(flagMockConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if flagMockHost != "" {
		cfg.Host = flagMockHost
	}
	if flagMockPort != 0 {
		cfg.Port = flagMockPort
	}
	if flagMockDelay != 0 {
		cfg.Delay = flagMockDelay
	}
	if flagMockLog {
		cfg.Logging = true
	}
	if err := mock.ValidateConfig(cfg); err != nil {
		return err
	}

	server := mock.NewServer(cfg)
	if err := server.Start(); err != nil {
		return err
	}
	log.Info().Str("address", server.GetAddress()).Msg("Mock Users API listening")

	if cfg.Logging {
		go func() {
			seen := 0
			for range server.NotifyChannel() {
				logs := server.GetLogs()
				for _, entry := range logs[min(seen, len(logs)):] {
					log.Info().
						Str("method", entry.Method).
						Str("path", entry.Path).
						Int("status", entry.Status).
						Dur("duration", entry.Duration).
						Msg("Request")
				}
				seen = len(logs)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down mock server")
	return server.Stop()
}
