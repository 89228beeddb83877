package scenario

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/apiharness/internal/config"
	"github.com/studiowebux/apiharness/internal/executor"
	"github.com/studiowebux/apiharness/internal/mock"
	"github.com/studiowebux/apiharness/internal/stresstest"
	"github.com/studiowebux/apiharness/internal/usersapi"
)

func newMockEnv(t *testing.T, cfg *mock.Config) (*mock.Server, Env) {
	t.Helper()
	server := mock.NewServer(cfg)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	users, err := usersapi.NewFromEndpoint(ts.URL, executor.Options{MaxConns: 5})
	require.NoError(t, err)

	return server, Env{
		Users:          users,
		Logger:         zerolog.Nop(),
		CleanupTimeout: 5 * time.Second,
	}
}

func TestRun_SkippedWithoutEndpoint(t *testing.T) {
	for _, s := range Catalog(nil) {
		report := s.Run(context.Background(), Env{Logger: zerolog.Nop()})

		assert.Equal(t, StatusSkipped, report.Status, s.Name)
		assert.Equal(t, SkipReason, report.Reason)
		assert.False(t, report.Failed())
		assert.Nil(t, report.Err)
	}
}

func TestConcurrentUserCreation_PassesAndCleansUp(t *testing.T) {
	server, env := newMockEnv(t, &mock.Config{})
	env.Metrics = stresstest.NewMetrics()

	report := NewConcurrentUserCreation().Run(context.Background(), env)

	require.Equal(t, StatusPassed, report.Status, report.Reason)
	assert.Equal(t, 10, report.Successes)
	require.NotNil(t, report.Stats)
	assert.Equal(t, 10, report.Stats.SuccessCount)
	assert.Equal(t, stresstest.CleanupReport{Attempted: 10, Deleted: 10}, report.Cleanup)
	assert.Empty(t, server.Users())
	assert.Len(t, server.DeletedIDs(), 10)
	assert.NotEmpty(t, report.ID)
}

func TestGetUsersPerformance_SeedsAndCleansUp(t *testing.T) {
	server, env := newMockEnv(t, &mock.Config{Logging: true})

	report := NewGetUsersPerformance().Run(context.Background(), env)

	require.Equal(t, StatusPassed, report.Status, report.Reason)
	assert.Equal(t, 20, report.Successes)
	assert.Equal(t, SeedUsers, report.Cleanup.Deleted)
	assert.Empty(t, server.Users())

	lists := 0
	for _, entry := range server.GetLogs() {
		if entry.MatchedRule == mock.RouteListUsers {
			lists++
		}
	}
	assert.Equal(t, 20, lists)
}

// TestThresholdFailure_StillDeletesEveryUser covers cleanup after a failed latency check
func TestThresholdFailure_StillDeletesEveryUser(t *testing.T) {
	server, env := newMockEnv(t, &mock.Config{
		Faults: []mock.Fault{{Route: mock.RouteCreateUser, Delay: 30}},
	})

	s := NewConcurrentUserCreation().Configure(config.ScenarioSettings{MaxMeanLatency: 5 * time.Millisecond})
	report := s.Run(context.Background(), env)

	require.Equal(t, StatusFailed, report.Status)
	assert.ErrorIs(t, report.Err, stresstest.ErrThresholdExceeded)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, stresstest.MetricMeanLatency, report.Violations[0].Metric)

	assert.Equal(t, 10, report.Cleanup.Deleted)
	assert.Len(t, server.DeletedIDs(), 10)
	assert.Empty(t, server.Users())
}

func TestPartialFailure_FailsOnSuccessCount(t *testing.T) {
	server, env := newMockEnv(t, &mock.Config{
		Faults: []mock.Fault{{Route: mock.RouteCreateUser, Status: 500, Every: 2}},
	})

	report := NewConcurrentUserCreation().Run(context.Background(), env)

	require.Equal(t, StatusFailed, report.Status)
	assert.Equal(t, 5, report.Successes)
	require.NotEmpty(t, report.Violations)
	assert.Equal(t, stresstest.MetricSuccessCount, report.Violations[0].Metric)
	assert.Equal(t, "5", report.Violations[0].Observed)

	// only the five created users are deleted
	assert.Equal(t, 5, report.Cleanup.Attempted)
	assert.Len(t, server.DeletedIDs(), 5)
	assert.Empty(t, server.Users())
}

func TestCleanupFailuresDoNotChangeOutcome(t *testing.T) {
	server, env := newMockEnv(t, &mock.Config{
		Faults: []mock.Fault{{Route: mock.RouteDeleteUser, Status: 503}},
	})

	report := NewConcurrentUserCreation().Run(context.Background(), env)

	assert.Equal(t, StatusPassed, report.Status)
	assert.Equal(t, 10, report.Cleanup.Failed)
	assert.Len(t, server.Users(), 10)
}

func TestTransportFailure_ReportsEmptyData(t *testing.T) {
	ts := httptest.NewServer(mock.NewServer(&mock.Config{}).Handler())
	url := ts.URL
	ts.Close()

	users, err := usersapi.NewFromEndpoint(url, executor.Options{Timeout: time.Second})
	require.NoError(t, err)

	report := NewGetUsersPerformance().Run(context.Background(), Env{Users: users, Logger: zerolog.Nop()})

	require.Equal(t, StatusFailed, report.Status)
	assert.ErrorIs(t, report.Err, ErrSetup)
	assert.ErrorIs(t, report.Err, executor.ErrTransport)

	report = NewConcurrentUserCreation().Run(context.Background(), Env{Users: users, Logger: zerolog.Nop()})
	require.Equal(t, StatusFailed, report.Status)
	assert.ErrorIs(t, report.Err, stresstest.ErrEmptyData)
	assert.ErrorIs(t, report.Err, stresstest.ErrThresholdExceeded)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, stresstest.MetricSuccessCount, report.Violations[0].Metric)
	assert.Equal(t, "0", report.Violations[0].Observed)
	assert.Nil(t, report.Stats)
	assert.Zero(t, report.Cleanup.Attempted)
}

func TestRun_ZeroRequestsFailsWithEmptyData(t *testing.T) {
	server, env := newMockEnv(t, &mock.Config{})

	s := NewConcurrentUserCreation()
	s.Requests = 0
	report := s.Run(context.Background(), env)

	require.Equal(t, StatusFailed, report.Status)
	assert.ErrorIs(t, report.Err, stresstest.ErrEmptyData)
	assert.NotErrorIs(t, report.Err, stresstest.ErrThresholdExceeded)
	assert.Empty(t, report.Violations)
	assert.Nil(t, report.Stats)
	assert.Empty(t, server.Users())
}

func TestRun_JournalRecordsBatch(t *testing.T) {
	_, env := newMockEnv(t, &mock.Config{})
	journal, err := stresstest.NewMemoryJournal()
	require.NoError(t, err)
	defer journal.Close()
	env.Journal = journal

	report := NewConcurrentUserCreation().Run(context.Background(), env)
	require.NotZero(t, report.JournalRun)

	breakdown, err := journal.StatusBreakdown(report.JournalRun)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{200: 10}, breakdown)
}

func TestCatalog_AppliesOverrides(t *testing.T) {
	settings := &config.Settings{
		Workers: 8,
		Scenarios: map[string]config.ScenarioSettings{
			GetUsersPerformance: {Requests: 50, Workers: 2, MaxMeanLatency: 300 * time.Millisecond},
		},
	}

	creation, ok := Lookup(settings, ConcurrentUserCreation)
	require.True(t, ok)
	assert.Equal(t, 10, creation.Requests)
	assert.Equal(t, 8, creation.Workers)
	assert.Equal(t, 2*time.Second, creation.Thresholds.MaxMeanLatency)

	listing, ok := Lookup(settings, GetUsersPerformance)
	require.True(t, ok)
	assert.Equal(t, 50, listing.Requests)
	assert.Equal(t, 2, listing.Workers)
	assert.Equal(t, 300*time.Millisecond, listing.Thresholds.MaxMeanLatency)
	assert.Zero(t, listing.Thresholds.MaxSingleLatency)

	_, ok = Lookup(settings, "nope")
	assert.False(t, ok)
}

func TestConfigure_DoesNotMutateOriginal(t *testing.T) {
	original := NewConcurrentUserCreation()
	configured := original.Configure(config.ScenarioSettings{Requests: 99})

	assert.Equal(t, 10, original.Requests)
	assert.Equal(t, 99, configured.Requests)
}

// TestLive runs the catalog against a real deployment when API_ENDPOINT is set
func TestLive(t *testing.T) {
	endpoint := os.Getenv(config.EnvEndpoint)
	if endpoint == "" {
		t.Skip(config.EnvEndpoint + " environment variable not set")
	}

	users, err := usersapi.NewFromEndpoint(endpoint, executor.Options{Token: os.Getenv(config.EnvToken)})
	require.NoError(t, err)

	for _, s := range Catalog(nil) {
		t.Run(s.Name, func(t *testing.T) {
			report := s.Run(context.Background(), Env{Users: users, Logger: zerolog.Nop()})
			if report.Failed() {
				t.Errorf("%s failed: %v", s.Name, report.Err)
			}
		})
	}
}
