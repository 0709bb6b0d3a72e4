package health

import "context"

// IndexState reports whether the search resources are loaded.
type IndexState interface {
	Loaded() bool
}

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
