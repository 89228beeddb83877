package suite

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studiowebux/apiharness/internal/config"
	"github.com/studiowebux/apiharness/internal/scenario"
	"github.com/studiowebux/apiharness/internal/types"
	"github.com/studiowebux/apiharness/internal/usersapi"
)

// Integration walks one user through create, get, list and delete
type Integration struct {
	Users          *usersapi.Client // nil skips the suite
	Logger         zerolog.Logger
	CleanupTimeout time.Duration
}

// Name implements Suite
func (i *Integration) Name() string {
	return NameIntegration
}

// Run implements Suite
func (i *Integration) Run(ctx context.Context) *Result {
	if i.Users == nil {
		return skipped(NameIntegration, scenario.SkipReason)
	}

	result := &Result{Name: NameIntegration, Status: StatusPassed}
	fail := func(step *Step, err error) *Result {
		step.Error = err.Error()
		result.Steps = append(result.Steps, *step)
		result.Status = StatusFailed
		result.Reason = fmt.Sprintf("%s: %v", step.Name, err)
		return result
	}
	record := func(step *Step) {
		result.Steps = append(result.Steps, *step)
	}

	user := types.NewUser{
		Name:  "Integration Test User",
		Email: fmt.Sprintf("integration+%s@example.com", uuid.NewString()),
	}

	// create
	step := &Step{Name: "create"}
	created, err := i.Users.CreateUser(ctx, user)
	if created != nil {
		step.Status = created.Status
		step.Elapsed = created.Duration
	}
	if err != nil {
		return fail(step, err)
	}
	if !created.IsOK() || created.PayloadField == "" {
		return fail(step, fmt.Errorf("expected status 200 with an id, got %d", created.Status))
	}
	record(step)
	id := created.PayloadField

	deleted := false
	defer func() {
		if deleted {
			return
		}
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.cleanupTimeout())
		defer cancel()
		if _, err := i.Users.DeleteUser(cleanupCtx, id); err != nil {
			i.Logger.Warn().Err(err).Str("id", id).Msg("Cleanup delete failed")
		}
	}()

	// get
	step = &Step{Name: "get"}
	got, err := i.Users.GetUser(ctx, id)
	if err != nil {
		return fail(step, err)
	}
	step.Status, step.Elapsed = got.Status, got.Duration
	if !got.IsOK() {
		return fail(step, fmt.Errorf("expected status 200, got %d", got.Status))
	}
	fetched, err := usersapi.DecodeUser(got.Body)
	if err != nil {
		return fail(step, err)
	}
	if fetched.UserID != id || fetched.Name != user.Name || fetched.Email != user.Email {
		return fail(step, fmt.Errorf("fetched user %+v does not match created user", fetched))
	}
	record(step)

	// list
	step = &Step{Name: "list"}
	listed, err := i.Users.ListUsers(ctx)
	if listed != nil {
		step.Status, step.Elapsed = listed.Status, listed.Duration
	}
	if err != nil {
		return fail(step, err)
	}
	if !listed.IsOK() {
		return fail(step, fmt.Errorf("expected status 200, got %d", listed.Status))
	}
	all, err := usersapi.DecodeUsers(listed.Body)
	if err != nil {
		return fail(step, err)
	}
	if !slices.ContainsFunc(all, func(u types.User) bool { return u.UserID == id }) {
		return fail(step, fmt.Errorf("user %s missing from listing", id))
	}
	record(step)

	// delete
	step = &Step{Name: "delete"}
	removed, err := i.Users.DeleteUser(ctx, id)
	if removed != nil {
		step.Status, step.Elapsed = removed.Status, removed.Duration
	}
	if err != nil {
		return fail(step, err)
	}
	deleted = true
	record(step)

	// gone
	step = &Step{Name: "get-deleted"}
	gone, err := i.Users.GetUser(ctx, id)
	if err != nil {
		return fail(step, err)
	}
	step.Status, step.Elapsed = gone.Status, gone.Duration
	if gone.IsOK() {
		return fail(step, fmt.Errorf("user %s still readable after delete", id))
	}
	record(step)

	return result
}

func (i *Integration) cleanupTimeout() time.Duration {
	if i.CleanupTimeout > 0 {
		return i.CleanupTimeout
	}
	return config.DefaultCleanupTimeout
}
