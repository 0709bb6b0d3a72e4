package recommender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/recommender/internal/db/redis"
	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/metrics"
	"github.com/kailas-cloud/recommender/internal/repository/artifact"
	"github.com/kailas-cloud/recommender/internal/repository/embcache"
	"github.com/kailas-cloud/recommender/internal/resource"
	healthuc "github.com/kailas-cloud/recommender/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/recommender/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/recommender/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultEmbedTimeout     = 10 * time.Second
)

// Internal interfaces, replaced in tests.
type recommendUseCase interface {
	Recommend(ctx context.Context, query string, topK int) ([]domain.Assessment, error)
}

// Client is the recommender SDK entry point. It is safe for concurrent use.
type Client struct {
	store        *dbRedis.Store
	resources    *resource.Provider
	recommendSvc recommendUseCase
	healthSvc    healthUseCase
	obs          *observer
}

// New creates a Client. With WithEagerLoad the index is loaded before New
// returns; otherwise the first Recommend call loads it.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{embedTimeout: defaultEmbedTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("recommender: embedder required (use WithEmbedder)")
	}
	if cfg.artifact == "" {
		return nil, errors.New("recommender: artifact location required (use WithArtifact)")
	}

	src, err := artifact.ParseLocation(cfg.artifact, artifact.S3Config{
		Endpoint:  cfg.s3.endpoint,
		AccessKey: cfg.s3.accessKey,
		SecretKey: cfg.s3.secretKey,
		Region:    cfg.s3.region,
		UseSSL:    cfg.s3.useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("recommender: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var domEmb domain.Embedder = &embedderAdapter{inner: cfg.embedder}
	var store *dbRedis.Store
	if len(cfg.cacheAddrs) > 0 {
		store, err = openCache(ctx, cfg)
		if err != nil {
			return nil, err
		}
		domEmb = embcache.New(domEmb, store, cfg.cacheModel, cfg.cacheTTL, metrics.EmbeddingCacheTotal, zap.NewNop())
	}

	provider := resource.NewProvider(resource.ArtifactLoader(src, domEmb, cfg.metric), zap.NewNop())
	c := wireClient(provider, store, domEmb, cfg, obs)

	if cfg.eager {
		if err := provider.Warm(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("recommender: load index: %w", err)
		}
	}
	return c, nil
}

func openCache(ctx context.Context, cfg *clientConfig) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.cacheAddrs,
		Password: cfg.cachePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("recommender: create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("recommender: cache not ready: %w", err)
	}
	return store, nil
}

func wireClient(
	provider *resource.Provider, store *dbRedis.Store, emb domain.Embedder, cfg *clientConfig, obs *observer,
) *Client {
	search := searchuc.New(provider, cfg.embedTimeout)
	recommendSvc := recommenduc.New(search, recommenduc.Config{
		CandidateCount: cfg.candidateCount,
		WorkingSet:     cfg.workingSet,
		DefaultTopK:    cfg.defaultTopK,
		MaxTopK:        cfg.maxTopK,
	})

	// A nil *Store must not reach the interface parameter.
	var cache healthuc.CachePinger
	if store != nil {
		cache = store
	}
	healthSvc := healthuc.New(provider, cache, embedderHealth{emb}, cfg.eager)

	return &Client{
		store:        store,
		resources:    provider,
		recommendSvc: recommendSvc,
		healthSvc:    healthSvc,
		obs:          obs,
	}
}

// Close releases the cache connection, if any.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Recommend returns up to topK assessments for a free-text query, balanced
// between technical and behavioral test types. topK 0 selects the default.
func (c *Client) Recommend(ctx context.Context, query string, topK int) (_ []Assessment, err error) {
	start := time.Now()
	records, err := c.recommendSvc.Recommend(ctx, query, topK)
	c.obs.observe("recommend", start, len(records), err)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}

	out := make([]Assessment, len(records))
	for i := range records {
		out[i] = assessmentFromDomain(&records[i])
	}
	return out, nil
}

// Loaded reports whether the index has been loaded.
func (c *Client) Loaded() bool {
	return c.resources.Loaded()
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// embedderHealth forwards health checks down the decorator chain.
type embedderHealth struct {
	inner domain.Embedder
}

func (h embedderHealth) HealthCheck(ctx context.Context) error {
	if hc, ok := h.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
