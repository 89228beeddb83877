package executor

import (
	"errors"
	"fmt"
)

// ErrTransport is matched by every error caused by the network layer
var ErrTransport = errors.New("transport failure")

// TransportError describes a request that never produced an HTTP response
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) true for any TransportError
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
