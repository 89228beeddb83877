// Package usersapi issues the Users API calls exercised by the harness:
// create (PUT /users), list (GET /users), get and delete (/users/{id}).
package usersapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/studiowebux/apiharness/internal/executor"
	"github.com/studiowebux/apiharness/internal/filter"
	"github.com/studiowebux/apiharness/internal/types"
)

// DefaultIDField is the JMESPath expression selecting the id of a created user
const DefaultIDField = "userid"

// Doer is the part of executor.Client used here
type Doer interface {
	Do(ctx context.Context, req *types.HttpRequest) (*types.RequestResult, error)
}

// Client wraps an executor with the Users API routes
type Client struct {
	doer    Doer
	idField *filter.Expression
	listing *filter.Expression
}

// Option configures a Client
type Option func(*Client)

// WithIDField overrides the expression used to read the id of a created user
func WithIDField(expr *filter.Expression) Option {
	return func(c *Client) {
		c.idField = expr
	}
}

// New creates a Users API client on top of an executor
func New(doer Doer, opts ...Option) *Client {
	c := &Client{
		doer:    doer,
		idField: filter.MustCompile(DefaultIDField),
		listing: filter.MustCompile("@"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromEndpoint builds the executor and the Users API client in one go
func NewFromEndpoint(endpoint string, execOpts executor.Options, opts ...Option) (*Client, error) {
	exec, err := executor.NewClient(endpoint, execOpts)
	if err != nil {
		return nil, err
	}
	return New(exec, opts...), nil
}

// CreateUser sends PUT /users. On 200 the created id is stored in PayloadField.
func (c *Client) CreateUser(ctx context.Context, user types.NewUser) (*types.RequestResult, error) {
	body, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}

	result, err := c.doer.Do(ctx, &types.HttpRequest{
		Name:   "create-user",
		Method: http.MethodPut,
		Path:   "/users",
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	if result.IsOK() {
		id, err := c.idField.Scalar(result.Body)
		if err != nil {
			return result, fmt.Errorf("failed to read %s from create response: %w", c.idField, err)
		}
		result.PayloadField = id
	}
	return result, nil
}

// ListUsers sends GET /users. On 200 the array length is stored in ItemCount.
func (c *Client) ListUsers(ctx context.Context) (*types.RequestResult, error) {
	result, err := c.doer.Do(ctx, &types.HttpRequest{
		Name:   "list-users",
		Method: http.MethodGet,
		Path:   "/users",
	})
	if err != nil {
		return nil, err
	}

	if result.IsOK() {
		count, err := c.listing.Count(result.Body)
		if err != nil {
			return result, fmt.Errorf("failed to read list response: %w", err)
		}
		result.ItemCount = count
	}
	return result, nil
}

// GetUser sends GET /users/{id}
func (c *Client) GetUser(ctx context.Context, id string) (*types.RequestResult, error) {
	return c.doer.Do(ctx, &types.HttpRequest{
		Name:   "get-user",
		Method: http.MethodGet,
		Path:   "/users/" + url.PathEscape(id),
	})
}

// DeleteUser sends DELETE /users/{id}. Any status other than 200/204 is
// reported as a *StatusError; the result is returned whenever a response
// arrived.
func (c *Client) DeleteUser(ctx context.Context, id string) (*types.RequestResult, error) {
	result, err := c.doer.Do(ctx, &types.HttpRequest{
		Name:   "delete-user",
		Method: http.MethodDelete,
		Path:   "/users/" + url.PathEscape(id),
	})
	if err != nil {
		return nil, err
	}
	if result.Status != http.StatusOK && result.Status != http.StatusNoContent {
		return result, &StatusError{Operation: "delete user " + id, Status: result.Status}
	}
	return result, nil
}

// DecodeUsers decodes a GET /users body
func DecodeUsers(body string) ([]types.User, error) {
	var users []types.User
	if err := json.Unmarshal([]byte(body), &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// DecodeUser decodes a single user document
func DecodeUser(body string) (*types.User, error) {
	var user types.User
	if err := json.Unmarshal([]byte(body), &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// StatusError reports an unexpected HTTP status for an operation
type StatusError struct {
	Operation string
	Status    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.Status)
}
