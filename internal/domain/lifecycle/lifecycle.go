// Package lifecycle holds shared constants for process startup and shutdown.
package lifecycle

import "time"

// DefaultTimeout bounds graceful shutdown and start-up health checks.
const DefaultTimeout = 10 * time.Second
