/*
Package executor performs timed HTTP requests against a configured endpoint.

# Overview

A Client owns one shared http.Client whose transport pools connections, so a
single Client is safe to use from every worker of a stress test run. Each call
to Do measures wall-clock time from just before the request is sent to just
after the full response body has been read.

# Error Handling

Errors are split in two:
  - Transport errors (connection refused, DNS, TLS, timeouts) are returned as
    *TransportError and match errors.Is(err, ErrTransport).
  - Application errors (unexpected status codes) are not errors at all: the
    status is part of the returned RequestResult and callers decide.

# Authentication

When Options.Token is set the transport is wrapped with an oauth2.Transport
backed by a static token source, which adds "Authorization: Bearer <token>" to
every request.

# TLS Configuration

TLS support includes:
  - Custom CA certificates
  - Client certificates (mTLS)
  - InsecureSkipVerify for development

# Example Usage

	client, err := executor.NewClient("https://api.example.com/prod", executor.Options{
		MaxConns: 5,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return err
	}

	result, err := client.Do(ctx, &types.HttpRequest{Method: http.MethodGet, Path: "/users"})
	if err != nil {
		return err // transport failure
	}
	fmt.Printf("%d in %s\n", result.Status, executor.FormatDuration(result.Duration))
*/
package executor
