package interfaces

import (
	"net/http"

	"github.com/medrex/clinic-scheduling/pkg/types"
)

// RouteGuard produces middleware that admits only bearers of the given roles
type RouteGuard interface {
	Require(roles ...types.Role) func(http.Handler) http.Handler
}

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	Allow(key string) bool
	// Remaining returns the tokens left for key and the configured limit
	Remaining(key string) (int, int)
}
