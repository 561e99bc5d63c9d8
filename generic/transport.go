/*
transport.go - Remote transport interface

PURPOSE:
  The adapter-facing contract for the remote REST API. One implementation
  lives in the transport package; tests substitute in-memory fakes.

PASS-THROUGH:
  The core treats remote responses as opaque Records. The only
  interpretation applied is mapping non-2xx responses to *TransportError.

SEE ALSO:
  - transport/http.go: HTTP implementation
  - adapter.go:        The online code paths that call this
*/
package generic

import "context"

// Transport issues remote calls for one or more entity types. Paths are
// entity-relative ("/products"); implementations own the base URL and
// authentication.
type Transport interface {
	// List fetches GET {path} and decodes a record list.
	List(ctx context.Context, path string) ([]Record, error)

	// Get fetches GET {path}/{id}.
	Get(ctx context.Context, path, id string) (Record, error)

	// Create posts rec to POST {path} and returns the server's response
	// verbatim, including the server-assigned identifier.
	Create(ctx context.Context, path string, rec Record) (Record, error)

	// Update puts rec to PUT {path}/{id}.
	Update(ctx context.Context, path, id string, rec Record) (Record, error)

	// Delete issues DELETE {path}/{id}.
	Delete(ctx context.Context, path, id string) error

	// FetchOne fetches GET {path} for entity-specific single-record
	// endpoints (e.g. /products/rfid/{tag}) and aggregate endpoints.
	FetchOne(ctx context.Context, path string) (Record, error)
}
