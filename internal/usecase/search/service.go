package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/recommender/internal/domain"
)

// DefaultEmbedTimeout bounds a single query embedding call.
const DefaultEmbedTimeout = 10 * time.Second

// Service embeds a query and returns the nearest catalog records.
type Service struct {
	bundles      BundleProvider
	embedTimeout time.Duration
}

// New creates a search service. A non-positive embedTimeout selects DefaultEmbedTimeout.
func New(bundles BundleProvider, embedTimeout time.Duration) *Service {
	if embedTimeout <= 0 {
		embedTimeout = DefaultEmbedTimeout
	}
	return &Service{bundles: bundles, embedTimeout: embedTimeout}
}

// Search returns up to candidateCount hits ordered nearest-first.
func (s *Service) Search(ctx context.Context, query string, candidateCount int) ([]domain.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidQuery)
	}
	if candidateCount <= 0 {
		return nil, fmt.Errorf("%w: candidate count must be positive, got %d", domain.ErrInvalidQuery, candidateCount)
	}

	bundle, err := s.bundles.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}

	vec, err := s.embed(ctx, bundle.Embedder, query)
	if err != nil {
		return nil, err
	}
	if len(vec) != bundle.Index.Dim() {
		return nil, domain.NewDimMismatch(bundle.Index.Dim(), len(vec))
	}

	neighbors, err := bundle.Index.Search(vec, candidateCount)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	hits := make([]domain.Hit, 0, len(neighbors))
	for _, n := range neighbors {
		rec, ok := bundle.Record(n.Position)
		if !ok {
			return nil, fmt.Errorf("%w: no record at position %d", domain.ErrIndexUnavailable, n.Position)
		}
		hits = append(hits, domain.Hit{
			Assessment: rec,
			Position:   n.Position,
			Rank:       len(hits),
			Distance:   n.Distance,
		})
	}
	return hits, nil
}

func (s *Service) embed(ctx context.Context, e domain.Embedder, query string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	res, err := e.Embed(ctx, query)
	if err != nil {
		if isDomainError(err) {
			return nil, fmt.Errorf("vectorize query: %w", err)
		}
		return nil, fmt.Errorf("vectorize query: %w: %w", domain.ErrEmbeddingProviderError, err)
	}

	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res.Embedding, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingProviderError) ||
		errors.Is(err, domain.ErrVectorDimMismatch) ||
		errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, domain.ErrInvalidQuery)
}
