package mock

import (
	"time"

	"github.com/studiowebux/apiharness/internal/types"
)

// Route names served by the fake Users API
const (
	RouteCreateUser = "create-user"
	RouteListUsers  = "list-users"
	RouteGetUser    = "get-user"
	RouteDeleteUser = "delete-user"
)

// Config represents the mock server configuration
type Config struct {
	Port    int             `json:"port" yaml:"port"`                   // Server port (default: 8080)
	Host    string          `json:"host" yaml:"host"`                   // Server host (default: localhost)
	Logging bool            `json:"logging" yaml:"logging"`             // Enable request logging
	Delay   int             `json:"delay,omitempty" yaml:"delay,omitempty"` // Delay applied to every request in milliseconds
	Seed    []types.NewUser `json:"seed,omitempty" yaml:"seed,omitempty"`   // Users present at startup
	Faults  []Fault         `json:"faults,omitempty" yaml:"faults,omitempty"`

	// NoContentOnDelete answers successful deletes with 204 and no body
	NoContentOnDelete bool `json:"noContentOnDelete,omitempty" yaml:"no_content_on_delete,omitempty"`
}

// Fault injects failures or latency into one route
type Fault struct {
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Route  string `json:"route" yaml:"route"`                     // create-user, list-users, get-user, delete-user
	Status int    `json:"status,omitempty" yaml:"status,omitempty"` // Status to return instead of the normal response (0 = normal)
	Every  int    `json:"every,omitempty" yaml:"every,omitempty"`   // Apply to every n-th matching request (0 or 1 = all)
	Delay  int    `json:"delay,omitempty" yaml:"delay,omitempty"`   // Extra delay in milliseconds
}

// RequestLog represents a logged request
type RequestLog struct {
	Timestamp   time.Time         `json:"timestamp"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Headers     map[string]string `json:"headers"`
	Body        string            `json:"body"`
	MatchedRule string            `json:"matchedRule"`
	Status      int               `json:"status"`
	Duration    time.Duration     `json:"duration"`
}
