package health

import "context"

// ModelChecker reports whether a recommendation artifact is loaded.
type ModelChecker interface {
	Ready(ctx context.Context) error
}

// CachePinger checks result cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
