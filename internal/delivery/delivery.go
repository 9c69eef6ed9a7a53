// Package delivery defines the contract every transport entrypoint implements.
package delivery

import "context"

// Delivery is a running entrypoint (HTTP server, worker, ...). Implementations
// register their shutdown on the fx lifecycle; Serve blocks until the server
// stops.
type Delivery interface {
	Serve(ctx context.Context) error
}
