package executor

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/studiowebux/apiharness/internal/types"
	"golang.org/x/oauth2"
)

const (
	// HTTP client configuration timeouts
	TCPDialTimeout        = 5 * time.Second
	TCPKeepAliveInterval  = 30 * time.Second
	TLSHandshakeTimeout   = 5 * time.Second
	IdleConnTimeout       = 90 * time.Second
	ExpectContinueTimeout = 1 * time.Second

	// DefaultRequestTimeout bounds a single request when Options.Timeout is zero
	DefaultRequestTimeout = 10 * time.Second
	// DefaultMaxConns sizes the connection pool when Options.MaxConns is zero
	DefaultMaxConns = 5
)

// Options configures a Client
type Options struct {
	MaxConns  int           // Expected number of concurrent callers, sizes the idle pool
	Timeout   time.Duration // Per-request timeout, including body read
	Token     string        // Optional static bearer token
	TLSConfig *types.TLSConfig
	UserAgent string

	// TokenSource supplies bearer tokens and takes precedence over Token
	TokenSource oauth2.TokenSource
}

// Client executes requests against a base endpoint using a shared, pooled http.Client
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a client for the given base endpoint
func NewClient(endpoint string, opts Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}

	httpClient, err := buildHTTPClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		userAgent:  opts.UserAgent,
		httpClient: httpClient,
	}, nil
}

// Endpoint returns the base endpoint without trailing slash
func (c *Client) Endpoint() string {
	return c.endpoint
}

// URL resolves a request path against the base endpoint
func (c *Client) URL(path string) string {
	if path == "" {
		return c.endpoint
	}
	return c.endpoint + "/" + strings.TrimLeft(path, "/")
}

// Do performs the request and returns the result. Non-2xx statuses are not
// errors; a non-nil error is always a *TransportError.
func (c *Client) Do(ctx context.Context, req *types.HttpRequest) (*types.RequestResult, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.URL(req.Path)

	var bodyReader io.Reader
	requestSize := 0
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
		requestSize = len(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	duration := time.Since(startTime)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	headers := make(map[string]string)
	for key, values := range resp.Header {
		headers[key] = strings.Join(values, ", ")
	}

	return &types.RequestResult{
		Status:       resp.StatusCode,
		StatusText:   resp.Status,
		Headers:      headers,
		Body:         string(bodyBytes),
		Duration:     duration,
		RequestSize:  requestSize,
		ResponseSize: len(bodyBytes),
	}, nil
}

// buildHTTPClient creates an HTTP client with connection pooling sized for
// concurrent workers, optional TLS/mTLS and optional bearer authentication
func buildHTTPClient(opts Options) (*http.Client, error) {
	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		// Unbounded: waiting for a free connection inside Do would be timed as latency
		MaxConnsPerHost:     0,
		IdleConnTimeout:     IdleConnTimeout,
		ForceAttemptHTTP2:   true,

		DialContext: (&net.Dialer{
			Timeout:   TCPDialTimeout,
			KeepAlive: TCPKeepAliveInterval,
		}).DialContext,

		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}

	if !opts.TLSConfig.IsZero() {
		tlsCfg, err := buildTLSConfig(opts.TLSConfig)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsCfg
	}

	var rt http.RoundTripper = transport
	source := opts.TokenSource
	if source == nil && opts.Token != "" {
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	}
	if source != nil {
		rt = &oauth2.Transport{
			Source: source,
			Base:   transport,
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}, nil
}

func buildTLSConfig(cfg *types.TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	// Load client certificate if provided (for mTLS)
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	// Load CA certificate if provided (for server verification)
	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsCfg.RootCAs = caCertPool
	}

	return tlsCfg, nil
}

// FormatDuration formats a duration to a short human-readable string
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// IsSuccessStatus returns true if status code is 2xx
func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
