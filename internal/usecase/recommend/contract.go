package recommend

import (
	"context"

	"github.com/kailas-cloud/recommender/internal/domain"
)

// Searcher returns candidate hits ordered nearest-first.
type Searcher interface {
	Search(ctx context.Context, query string, candidateCount int) ([]domain.Hit, error)
}
