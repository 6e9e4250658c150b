// Package limiter defines the request rate-limiting collaborator consumed by
// the HTTP layer. The policy engine behind it is replaceable; a
// PostgreSQL-backed sliding-window implementation ships as the default.
package limiter

import "context"

// Limiter is consulted once per request, before authentication.
type Limiter interface {
	// Check reports whether a request from addr to path is allowed right now.
	Check(ctx context.Context, addr, path string) (bool, error)
}
