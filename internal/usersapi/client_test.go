package usersapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/apiharness/internal/executor"
	"github.com/studiowebux/apiharness/internal/filter"
	"github.com/studiowebux/apiharness/internal/mock"
	"github.com/studiowebux/apiharness/internal/types"
)

func newClient(t *testing.T, cfg *mock.Config, opts ...Option) (*Client, *mock.Server) {
	t.Helper()
	srv := mock.NewServer(cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := NewFromEndpoint(ts.URL, executor.Options{}, opts...)
	require.NoError(t, err)
	return client, srv
}

func TestClient_CreateUser(t *testing.T) {
	client, srv := newClient(t, &mock.Config{})

	result, err := client.CreateUser(context.Background(), types.NewUser{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	require.NotEmpty(t, result.PayloadField)

	users := srv.Users()
	require.Len(t, users, 1)
	assert.Equal(t, users[0].UserID, result.PayloadField)
}

func TestClient_CreateUser_NonOKHasNoPayload(t *testing.T) {
	client, _ := newClient(t, &mock.Config{Faults: []mock.Fault{
		{Route: mock.RouteCreateUser, Status: http.StatusInternalServerError},
	}})

	result, err := client.CreateUser(context.Background(), types.NewUser{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Empty(t, result.PayloadField)
}

func TestClient_CreateUser_CustomIDField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":{"id":"nested-7"}}`))
	}))
	defer server.Close()

	exec, err := executor.NewClient(server.URL, executor.Options{})
	require.NoError(t, err)
	client := New(exec, WithIDField(filter.MustCompile("data.id")))

	result, err := client.CreateUser(context.Background(), types.NewUser{Name: "a", Email: "b"})
	require.NoError(t, err)
	assert.Equal(t, "nested-7", result.PayloadField)
}

func TestClient_ListUsers(t *testing.T) {
	client, _ := newClient(t, &mock.Config{Seed: []types.NewUser{
		{Name: "One", Email: "one@example.com"},
		{Name: "Two", Email: "two@example.com"},
		{Name: "Three", Email: "three@example.com"},
	}})

	result, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, 3, result.ItemCount)

	users, err := DecodeUsers(result.Body)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestClient_GetAndDeleteUser(t *testing.T) {
	client, srv := newClient(t, &mock.Config{})
	ctx := context.Background()

	created, err := client.CreateUser(ctx, types.NewUser{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	got, err := client.GetUser(ctx, created.PayloadField)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, got.Status)
	user, err := DecodeUser(got.Body)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	deleted, err := client.DeleteUser(ctx, created.PayloadField)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, deleted.Status)
	assert.Equal(t, []string{created.PayloadField}, srv.DeletedIDs())

	missing, err := client.DeleteUser(ctx, created.PayloadField)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	require.NotNil(t, missing)
	assert.Equal(t, http.StatusNotFound, missing.Status)
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client, err := NewFromEndpoint(endpoint, executor.Options{})
	require.NoError(t, err)

	_, err = client.ListUsers(context.Background())
	assert.ErrorIs(t, err, executor.ErrTransport)

	deleted, err := client.DeleteUser(context.Background(), "x")
	assert.ErrorIs(t, err, executor.ErrTransport)
	assert.Nil(t, deleted)
}

func TestDecodeUser_KeepsUnknownFields(t *testing.T) {
	user, err := DecodeUser(`{"userid":"u1","name":"n","email":"e","createdAt":"2024-01-01"}`)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)
	require.Contains(t, user.Extra, "createdAt")
	assert.JSONEq(t, `"2024-01-01"`, string(user.Extra["createdAt"]))
}
