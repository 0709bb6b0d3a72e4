package evaluation

import (
	"context"

	"github.com/kailas-cloud/recommender/internal/domain"
)

// Recommender produces ranked recommendations for a query.
type Recommender interface {
	Recommend(ctx context.Context, query string, topK int) ([]domain.Assessment, error)
}
