package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studiowebux/apiharness/internal/config"
	"github.com/studiowebux/apiharness/internal/stresstest"
	"github.com/studiowebux/apiharness/internal/types"
	"github.com/studiowebux/apiharness/internal/usersapi"
)

// Catalog scenario names
const (
	ConcurrentUserCreation = "concurrent-user-creation"
	GetUsersPerformance    = "get-users-performance"
)

// SeedUsers is the number of users created before the listing batch
const SeedUsers = 5

// NewConcurrentUserCreation creates users concurrently and deletes them afterwards
func NewConcurrentUserCreation() *Scenario {
	return &Scenario{
		Name:        ConcurrentUserCreation,
		Description: "PUT /users concurrently",
		Requests:    10,
		Workers:     5,
		Thresholds: stresstest.Thresholds{
			MaxMeanLatency:   2 * time.Second,
			MaxSingleLatency: 5 * time.Second,
		},
		TrackCreated: true,
		Task: func(users *usersapi.Client) stresstest.Task {
			return func(ctx context.Context) (*types.RequestResult, error) {
				return users.CreateUser(ctx, types.NewUser{
					Name:  "Load Test User",
					Email: uniqueEmail("loadtest"),
				})
			}
		},
	}
}

// NewGetUsersPerformance seeds a few users, then lists users concurrently
func NewGetUsersPerformance() *Scenario {
	return &Scenario{
		Name:        GetUsersPerformance,
		Description: "GET /users concurrently over seeded data",
		Requests:    20,
		Workers:     5,
		Thresholds: stresstest.Thresholds{
			MaxMeanLatency: time.Second,
		},
		Setup: seedUsers(SeedUsers),
		Task: func(users *usersapi.Client) stresstest.Task {
			return users.ListUsers
		},
	}
}

// seedUsers creates n users one after another. A create that does not
// return 200 is skipped; the batch that follows still measures the listing.
func seedUsers(n int) SetupFunc {
	return func(ctx context.Context, users *usersapi.Client, cleaner *stresstest.Cleaner) error {
		for i := 0; i < n; i++ {
			result, err := users.CreateUser(ctx, types.NewUser{
				Name:  fmt.Sprintf("Perf Test User %d", i),
				Email: uniqueEmail(fmt.Sprintf("perftest%d", i)),
			})
			if err != nil && result == nil {
				return fmt.Errorf("seed user %d: %w", i, err)
			}
			if result.IsOK() {
				cleaner.Register(result.PayloadField)
			}
		}
		return nil
	}
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s+%s@example.com", prefix, uuid.NewString())
}

// Catalog returns the built-in scenarios with the given overrides applied
func Catalog(settings *config.Settings) []*Scenario {
	scenarios := []*Scenario{
		NewConcurrentUserCreation(),
		NewGetUsersPerformance(),
	}
	if settings == nil {
		return scenarios
	}

	for i, s := range scenarios {
		override := settings.Scenario(s.Name)
		if override.Workers == 0 && settings.Workers > 0 {
			override.Workers = settings.Workers
		}
		scenarios[i] = s.Configure(override)
	}
	return scenarios
}

// Lookup finds a catalog scenario by name
func Lookup(settings *config.Settings, name string) (*Scenario, bool) {
	for _, s := range Catalog(settings) {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}
