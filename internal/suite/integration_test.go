package suite

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/apiharness/internal/executor"
	"github.com/studiowebux/apiharness/internal/mock"
	"github.com/studiowebux/apiharness/internal/scenario"
	"github.com/studiowebux/apiharness/internal/usersapi"
)

func newMockUsers(t *testing.T, cfg *mock.Config) (*mock.Server, *usersapi.Client) {
	t.Helper()
	server := mock.NewServer(cfg)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	users, err := usersapi.NewFromEndpoint(ts.URL, executor.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return server, users
}

func TestIntegration_RoundTrip(t *testing.T) {
	server, users := newMockUsers(t, &mock.Config{})

	result := (&Integration{Users: users, Logger: zerolog.Nop()}).Run(context.Background())

	require.Equal(t, StatusPassed, result.Status, result.Reason)
	var names []string
	for _, s := range result.Steps {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"create", "get", "list", "delete", "get-deleted"}, names)
	assert.Equal(t, 404, result.Steps[4].Status)
	assert.Empty(t, server.Users())
	assert.Len(t, server.DeletedIDs(), 1)
}

func TestIntegration_RecordsDeleteStatus(t *testing.T) {
	server, users := newMockUsers(t, &mock.Config{NoContentOnDelete: true})

	result := (&Integration{Users: users, Logger: zerolog.Nop()}).Run(context.Background())

	require.Equal(t, StatusPassed, result.Status, result.Reason)
	require.Len(t, result.Steps, 5)
	assert.Equal(t, "delete", result.Steps[3].Name)
	assert.Equal(t, 204, result.Steps[3].Status)
	assert.Positive(t, result.Steps[3].Elapsed)
	assert.Len(t, server.DeletedIDs(), 1)
}

func TestIntegration_FailureStillDeletes(t *testing.T) {
	server, users := newMockUsers(t, &mock.Config{
		Faults: []mock.Fault{{Route: mock.RouteListUsers, Status: 500}},
	})

	result := (&Integration{Users: users, Logger: zerolog.Nop()}).Run(context.Background())

	require.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Reason, "list")
	assert.Empty(t, server.Users())
	assert.Len(t, server.DeletedIDs(), 1)
}

func TestIntegration_CreateRejected(t *testing.T) {
	server, users := newMockUsers(t, &mock.Config{
		Faults: []mock.Fault{{Route: mock.RouteCreateUser, Status: 503}},
	})

	result := (&Integration{Users: users, Logger: zerolog.Nop()}).Run(context.Background())

	require.Equal(t, StatusFailed, result.Status)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, 503, result.Steps[0].Status)
	assert.Empty(t, server.DeletedIDs())
}

func TestIntegration_SkippedWithoutClient(t *testing.T) {
	result := (&Integration{}).Run(context.Background())
	assert.Equal(t, StatusSkipped, result.Status)
}

func TestPerformance_RunsCatalog(t *testing.T) {
	server, users := newMockUsers(t, &mock.Config{})

	result := (&Performance{
		Scenarios: scenario.Catalog(nil),
		Env:       scenario.Env{Users: users, Logger: zerolog.Nop()},
	}).Run(context.Background())

	require.Equal(t, StatusPassed, result.Status, result.Reason)
	require.Len(t, result.Scenarios, 2)
	assert.Empty(t, server.Users())
}

func TestPerformance_FailureNamesScenario(t *testing.T) {
	_, users := newMockUsers(t, &mock.Config{
		Faults: []mock.Fault{{Route: mock.RouteListUsers, Status: 500, Every: 3}},
	})

	result := (&Performance{
		Scenarios: scenario.Catalog(nil),
		Env:       scenario.Env{Users: users, Logger: zerolog.Nop()},
	}).Run(context.Background())

	require.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "failed scenarios: "+scenario.GetUsersPerformance, result.Reason)
}
