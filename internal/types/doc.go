/*
Package types defines the data structures shared between the HTTP adapter,
the Users API client and the stress test runner.

# Request Types

HttpRequest:
  - Method, path relative to the configured endpoint, headers
  - Optional JSON body (already encoded)

# Response Types

RequestResult:
  - Status, headers, body
  - Duration from send to full body receipt
  - Request/response sizes
  - PayloadField: identifier extracted from a successful body (e.g. userid)
  - ItemCount: element count for list responses

# Users API

User and NewUser mirror the JSON documents exchanged with the Users API.
Unknown fields returned by the API are kept in User.Extra so that integration
checks can report them without the harness knowing the full schema.

# Field Tags

All types use JSON and YAML tags; the summary printer serializes results with
either encoder.
*/
package types
