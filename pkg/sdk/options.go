package recommender

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type s3Options struct {
	endpoint  string
	accessKey string
	secretKey string
	region    string
	useSSL    bool
}

type clientConfig struct {
	embedder Embedder
	artifact string
	s3       s3Options
	metric   string
	eager    bool

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration
	cacheModel    string

	candidateCount int
	workingSet     int
	defaultTopK    int
	maxTopK        int
	embedTimeout   time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithEmbedder sets the query embedding provider. Required. It must produce
// vectors from the same model the index artifact was built with.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithArtifact sets the index artifact location: a directory or s3://bucket/prefix. Required.
func WithArtifact(location string) Option {
	return optionFunc(func(c *clientConfig) {
		c.artifact = location
	})
}

// WithS3 configures the S3-compatible endpoint used for s3:// artifact locations.
func WithS3(endpoint, accessKey, secretKey, region string, useSSL bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.s3 = s3Options{
			endpoint:  endpoint,
			accessKey: accessKey,
			secretKey: secretKey,
			region:    region,
			useSSL:    useSSL,
		}
	})
}

// WithMetric overrides the distance metric recorded in the artifact manifest:
// "l2", "cosine" or "inner_product".
func WithMetric(metric string) Option {
	return optionFunc(func(c *clientConfig) {
		c.metric = metric
	})
}

// WithEagerLoad loads the index during New instead of on the first Recommend.
func WithEagerLoad() Option {
	return optionFunc(func(c *clientConfig) {
		c.eager = true
	})
}

// WithRedisCache caches query embeddings in Redis. model scopes cache keys so
// vectors from different models never mix. A zero ttl keeps entries forever.
func WithRedisCache(addr, password, model string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheModel = model
		c.cacheTTL = ttl
	})
}

// WithCandidates sets how many nearest neighbours are retrieved and how many
// of them are kept before balancing. Defaults: 20 and 20.
func WithCandidates(candidateCount, workingSet int) Option {
	return optionFunc(func(c *clientConfig) {
		c.candidateCount = candidateCount
		c.workingSet = workingSet
	})
}

// WithTopK sets the default and maximum number of recommendations. Defaults: 10 and 50.
func WithTopK(defaultTopK, maxTopK int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTopK = defaultTopK
		c.maxTopK = maxTopK
	})
}

// WithEmbedTimeout bounds each query embedding call. Default: 10s.
func WithEmbedTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operations by outcome, durations, result counts)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
