// Package oauth obtains bearer tokens for APIs protected by an OAuth2
// authorization server, using the client credentials grant so the harness
// can run without a browser.
package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenRequestTimeout is the timeout for token requests
const TokenRequestTimeout = 30 * time.Second

// Config holds client credentials settings
type Config struct {
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
	Audience     string   `mapstructure:"audience"` // sent as an extra form parameter when set
}

// IsZero reports whether no OAuth setting is present
func (c *Config) IsZero() bool {
	return c == nil || (c.TokenURL == "" && c.ClientID == "" && c.ClientSecret == "")
}

// Validate checks that the grant can be attempted
func (c *Config) Validate() error {
	if c.TokenURL == "" {
		return fmt.Errorf("oauth token_url is required")
	}
	u, err := url.Parse(c.TokenURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("oauth token_url %q must be an http(s) URL", c.TokenURL)
	}
	if c.ClientID == "" {
		return fmt.Errorf("oauth client_id is required")
	}
	return nil
}

// TokenSource returns a caching token source. Tokens are fetched lazily on
// the first request and refreshed when they expire.
func TokenSource(ctx context.Context, c *Config) (oauth2.TokenSource, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cc := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
	if c.Audience != "" {
		cc.EndpointParams = url.Values{"audience": {c.Audience}}
	}

	// The token client must not inherit a caller deadline
	ctx = context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, &http.Client{Timeout: TokenRequestTimeout})
	return cc.TokenSource(ctx), nil
}

// FetchToken obtains a token from source immediately, so bad credentials
// surface once at startup. The source returned by TokenSource keeps it for
// the requests that follow.
func FetchToken(source oauth2.TokenSource) (*oauth2.Token, error) {
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain oauth token: %w", err)
	}
	return token, nil
}
