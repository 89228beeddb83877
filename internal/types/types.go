package types

import (
	"encoding/json"
	"time"
)

// HttpRequest represents a single request against the configured endpoint
type HttpRequest struct {
	Name    string            `json:"name,omitempty" yaml:"name,omitempty"`
	Method  string            `json:"method" yaml:"method"`
	Path    string            `json:"path" yaml:"path"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty" yaml:"body,omitempty"`
}

// RequestResult contains the HTTP response data
type RequestResult struct {
	Status       int               `json:"status" yaml:"status"`
	StatusText   string            `json:"statusText" yaml:"statusText"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body         string            `json:"body,omitempty" yaml:"body,omitempty"`
	Duration     time.Duration     `json:"duration" yaml:"duration"`
	RequestSize  int               `json:"requestSize" yaml:"requestSize"`
	ResponseSize int               `json:"responseSize" yaml:"responseSize"`
	PayloadField string            `json:"payloadField,omitempty" yaml:"payloadField,omitempty"` // e.g. userid of a created user
	ItemCount    int               `json:"itemCount,omitempty" yaml:"itemCount,omitempty"`
}

// IsOK reports whether the response carried status 200
func (r *RequestResult) IsOK() bool {
	return r != nil && r.Status == 200
}

// TLSConfig contains TLS/mTLS settings for the HTTP client
type TLSConfig struct {
	CertFile           string `json:"certFile,omitempty" yaml:"certFile,omitempty" mapstructure:"cert_file"`
	KeyFile            string `json:"keyFile,omitempty" yaml:"keyFile,omitempty" mapstructure:"key_file"`
	CAFile             string `json:"caFile,omitempty" yaml:"caFile,omitempty" mapstructure:"ca_file"`
	InsecureSkipVerify bool   `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty" mapstructure:"insecure_skip_verify"`
}

// IsZero reports whether no TLS option is set
func (c *TLSConfig) IsZero() bool {
	return c == nil || (c.CertFile == "" && c.KeyFile == "" && c.CAFile == "" && !c.InsecureSkipVerify)
}

// NewUser is the body sent to PUT /users
type NewUser struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// User is a user document returned by the Users API
type User struct {
	UserID string                     `json:"userid" yaml:"userid"`
	Name   string                     `json:"name" yaml:"name"`
	Email  string                     `json:"email" yaml:"email"`
	Extra  map[string]json.RawMessage `json:"-" yaml:"-"`
}

// UnmarshalJSON keeps unknown fields in Extra
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "userid")
	delete(raw, "name")
	delete(raw, "email")
	if len(raw) > 0 {
		p.Extra = raw
	}

	*u = User(p)
	return nil
}
