package recommender

import "github.com/kailas-cloud/recommender/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrIndexUnavailable       = domain.ErrIndexUnavailable
	ErrNoResults              = domain.ErrNoResults
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrRateLimited            = domain.ErrRateLimited
)
