package search

import (
	"context"

	"github.com/kailas-cloud/recommender/internal/resource"
)

// BundleProvider yields the loaded embedder, index and records.
type BundleProvider interface {
	Get(ctx context.Context) (*resource.Bundle, error)
}
