/*
errors.go - Error taxonomy for the data-access core

PURPOSE:
  All error types in one place. The taxonomy is deliberately small:

  1. ErrNotFound           - operation targeted a record absent from the
                             relevant store/mode
  2. TransportError        - a remote call failed; carries the HTTP status
                             unchanged so callers see the same failure the
                             online path produced
  3. ErrUnsupportedOffline - an always-online operation was attempted while
                             offline

PROPAGATION:
  Adapters never swallow errors. NotFound and transport failures propagate
  to the caller; UnsupportedOffline is raised rather than silently degraded
  so an always-online action can never appear to have succeeded offline.
  The stock cascade is the one exception: per-line missing products are
  skipped, not propagated.

SEE ALSO:
  - adapter.go: Where these errors surface
*/
package generic

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a record is absent from the store the
	// current mode resolves to.
	ErrNotFound = errors.New("record not found")

	// ErrUnsupportedOffline is returned when an operation whose correctness
	// depends on server-side authority (credentials, licensing, payment
	// state) is attempted while offline.
	ErrUnsupportedOffline = errors.New("operation not supported offline")
)

// TransportError wraps a failed remote call. The status code and body are
// propagated unchanged from the transport.
type TransportError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote call failed: %s %d: %s", e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a missing-record condition in either
// mode: the local ErrNotFound sentinel, or a remote 404. UI error handling
// is mode-agnostic, so both map to the same condition.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var te *TransportError
	return errors.As(err, &te) && te.StatusCode == http.StatusNotFound
}

// IsUnsupportedOffline reports whether err is an always-online rejection.
func IsUnsupportedOffline(err error) bool {
	return errors.Is(err, ErrUnsupportedOffline)
}

// IsTransport reports whether err originated from the remote transport,
// and returns the underlying error when it did.
func IsTransport(err error) (*TransportError, bool) {
	var te *TransportError
	ok := errors.As(err, &te)
	return te, ok
}
