package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recommender/internal/config"
	"github.com/kailas-cloud/recommender/internal/db"
	dbRedis "github.com/kailas-cloud/recommender/internal/db/redis"
	"github.com/kailas-cloud/recommender/internal/domain"
	logpkg "github.com/kailas-cloud/recommender/internal/logger"
	"github.com/kailas-cloud/recommender/internal/metrics"
	"github.com/kailas-cloud/recommender/internal/repository/artifact"
	"github.com/kailas-cloud/recommender/internal/repository/embcache"
	"github.com/kailas-cloud/recommender/internal/resource"
	geminiEmb "github.com/kailas-cloud/recommender/internal/transport/gemini"
	openaiEmb "github.com/kailas-cloud/recommender/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/recommender/internal/usecase/embedding"
	recommenduc "github.com/kailas-cloud/recommender/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/recommender/internal/usecase/search"
)

const (
	taskQuery    = "RETRIEVAL_QUERY"
	taskDocument = "RETRIEVAL_DOCUMENT"
)

// application is the composition root shared by all commands.
type application struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	store  db.Store
}

// newApplication loads config and builds the logger. server selects the
// environment logger; CLI commands log compactly to stderr.
func newApplication(flags *rootFlags, server bool) (*application, error) {
	env := flags.env
	if env == "" {
		env = config.GetEnv()
	}

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var logger *zap.Logger
	if server {
		level := cfg.Logging.Level
		if flags.logLevel != "" {
			level = flags.logLevel
		}
		logger, err = logpkg.NewLogger(env, level)
	} else {
		logger, err = logpkg.NewCLILogger(flags.logLevel)
	}
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	return &application{env: env, cfg: cfg, logger: logger}, nil
}

func (a *application) Close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// openCache connects the embedding cache store when it is enabled.
func (a *application) openCache(ctx context.Context) error {
	if !a.cfg.Embedding.Cache.Enabled || a.store != nil {
		return nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    a.cfg.Cache.Addrs,
		Password: a.cfg.Cache.Password,
	})
	if err != nil {
		return fmt.Errorf("create cache store: %w", err)
	}
	if err := store.WaitForReady(ctx, secondsOf(a.cfg.Cache.ReadinessTimeout)); err != nil {
		store.Close()
		return fmt.Errorf("cache not ready: %w", err)
	}
	a.store = store
	a.logger.Info("Connected to embedding cache", zap.Strings("addrs", a.cfg.Cache.Addrs))
	return nil
}

// baseEmbedder creates the provider client for the configured backend.
func (a *application) baseEmbedder(ctx context.Context, taskType string) (domain.Embedder, error) {
	ec := a.cfg.Embedding
	switch ec.Provider {
	case config.ProviderGemini:
		e, err := geminiEmb.NewEmbedder(ctx, &geminiEmb.Config{
			APIKey:     ec.APIKey,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			TaskType:   taskType,
			Logger:     a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini embedder: %w", err)
		}
		return e, nil
	default:
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Provider:   ec.Provider,
			Logger:     a.logger,
		}), nil
	}
}

// embedder assembles the decorator chain: provider -> cache -> instrumented -> instruction.
func (a *application) embedder(ctx context.Context, taskType, instruction string) (domain.Embedder, error) {
	base, err := a.baseEmbedder(ctx, taskType)
	if err != nil {
		return nil, err
	}

	ec := a.cfg.Embedding
	var e domain.Embedder = base
	if a.store != nil {
		e = embcache.New(base, a.store, ec.Model, a.cfg.Cache.TTL(), metrics.EmbeddingCacheTotal, a.logger)
	}

	var opts []embeddinguc.Option
	if ec.RateLimitRPS > 0 {
		opts = append(opts, embeddinguc.WithRateLimit(ec.RateLimitRPS))
	}
	opts = append(opts, embeddinguc.WithMaxBatchSize(ec.MaxBatchSize))
	e = embeddinguc.NewInstrumentedEmbedder(e, ec.Provider, ec.Model, a.logger, opts...)

	if instruction != "" {
		return domain.NewInstructionEmbedder(e, instruction), nil
	}
	return e, nil
}

func (a *application) artifactSource(location string) (artifact.Source, error) {
	s3 := a.cfg.Storage.S3
	src, err := artifact.ParseLocation(location, artifact.S3Config{
		Endpoint:  s3.Endpoint,
		AccessKey: s3.AccessKey,
		SecretKey: s3.SecretKey,
		Region:    s3.Region,
		UseSSL:    s3.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("artifact location %q: %w", location, err)
	}
	return src, nil
}

// pipeline is the wired recommendation path.
type pipeline struct {
	recommend *recommenduc.Service
	resources *resource.Provider
	embedder  domain.Embedder
}

// recommender wires the lazy resource provider and the recommendation pipeline.
func (a *application) recommender(ctx context.Context) (*pipeline, error) {
	if err := a.openCache(ctx); err != nil {
		return nil, err
	}

	queryEmbedder, err := a.embedder(ctx, taskQuery, a.cfg.Embedding.QueryInstruction)
	if err != nil {
		return nil, err
	}

	src, err := a.artifactSource(a.cfg.Index.Artifact)
	if err != nil {
		return nil, err
	}

	loader := a.checkModel(resource.ArtifactLoader(src, queryEmbedder, a.cfg.Index.Metric))
	provider := resource.NewProvider(loader, a.logger)

	search := searchuc.New(provider, a.cfg.Embedding.EmbedTimeout())
	svc := recommenduc.New(search, recommenduc.Config{
		CandidateCount: a.cfg.Index.CandidateCount,
		WorkingSet:     a.cfg.Index.WorkingSet,
		DefaultTopK:    a.cfg.Recommend.DefaultTopK,
		MaxTopK:        a.cfg.Recommend.MaxTopK,
	})
	return &pipeline{recommend: svc, resources: provider, embedder: queryEmbedder}, nil
}

// checkModel warns when the artifact was built with a different model than
// the one configured for queries.
func (a *application) checkModel(load resource.Loader) resource.Loader {
	return func(ctx context.Context) (*resource.Bundle, error) {
		b, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if b.Model != "" && a.cfg.Embedding.Model != "" && b.Model != a.cfg.Embedding.Model {
			a.logger.Warn("Index artifact was built with a different embedding model",
				zap.String("artifact_model", b.Model),
				zap.String("query_model", a.cfg.Embedding.Model),
			)
		}
		return b, nil
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

func secondsOf(n int) time.Duration {
	return time.Duration(n) * time.Second
}
