// Package recommend runs the recommendation pipeline: similarity search,
// rank truncation and category balancing.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/logger"
	"github.com/kailas-cloud/recommender/internal/metrics"
	"github.com/kailas-cloud/recommender/internal/usecase/ranking"
)

// Pipeline defaults.
const (
	DefaultCandidateCount = 20
	DefaultWorkingSet     = 20
	DefaultMaxTopK        = 50
)

// Config sizes the pipeline stages. Zero values select the defaults.
type Config struct {
	CandidateCount int // hits requested from the searcher
	WorkingSet     int // hits kept after truncation, before balancing
	DefaultTopK    int
	MaxTopK        int
}

func (c *Config) applyDefaults() {
	if c.CandidateCount <= 0 {
		c.CandidateCount = DefaultCandidateCount
	}
	if c.WorkingSet <= 0 {
		c.WorkingSet = DefaultWorkingSet
	}
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = domain.DefaultTopK
	}
	if c.MaxTopK <= 0 {
		c.MaxTopK = DefaultMaxTopK
	}
}

// Service produces balanced recommendation lists.
type Service struct {
	search Searcher
	cfg    Config
}

// New creates a recommendation service.
func New(search Searcher, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{search: search, cfg: cfg}
}

// Config returns the effective pipeline configuration.
func (s *Service) Config() Config { return s.cfg }

// Recommend returns at most topK records for query. topK == 0 selects the
// configured default; negative or above the maximum is ErrInvalidQuery.
func (s *Service) Recommend(ctx context.Context, query string, topK int) ([]domain.Assessment, error) {
	out, err := s.recommend(ctx, query, topK)
	metrics.RecommendationsTotal.WithLabelValues(Outcome(err)).Inc()
	return out, err
}

func (s *Service) recommend(ctx context.Context, query string, topK int) ([]domain.Assessment, error) {
	if topK == 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK < 0 || topK > s.cfg.MaxTopK {
		return nil, fmt.Errorf("%w: top_k must be between 1 and %d, got %d",
			domain.ErrInvalidQuery, s.cfg.MaxTopK, topK)
	}

	start := time.Now()
	hits, err := s.search.Search(ctx, query, s.cfg.CandidateCount)
	metrics.ObserveStage("search", start)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	start = time.Now()
	working := ranking.Truncate(domain.Assessments(hits), s.cfg.WorkingSet)
	metrics.ObserveStage("truncate", start)

	start = time.Now()
	final := ranking.Balance(working, topK)
	metrics.ObserveStage("balance", start)

	if len(final) == 0 {
		return nil, domain.ErrNoResults
	}

	composition := ranking.Composition(final)
	for b, n := range composition {
		metrics.ResultBucketRecords.WithLabelValues(b.String()).Add(float64(n))
	}
	logger.FromContext(ctx).Debug("recommendations ready",
		zap.Int("candidates", len(hits)),
		zap.Int("returned", len(final)),
		zap.Int("technical", composition[domain.Technical]),
		zap.Int("behavioral", composition[domain.Behavioral]),
		zap.Int("other", composition[domain.Other]),
	)
	return final, nil
}

// Outcome maps a Recommend error to its metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, domain.ErrNoResults):
		return "no_results"
	case errors.Is(err, domain.ErrIndexUnavailable):
		return "index_unavailable"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return "embedding_provider_error"
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return "vector_dim_mismatch"
	default:
		return "error"
	}
}
