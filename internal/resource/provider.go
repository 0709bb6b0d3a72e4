// Package resource owns the lazily loaded search bundle: the query embedder,
// the vector index and the positional record table.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/index"
	"github.com/kailas-cloud/recommender/internal/metrics"
	"github.com/kailas-cloud/recommender/internal/repository/artifact"
)

// Bundle is immutable once loaded and shared by all callers.
type Bundle struct {
	Embedder domain.Embedder
	Index    *index.Flat
	Records  []domain.Assessment
	Model    string
}

// Record resolves an index position to its record.
func (b *Bundle) Record(pos int) (domain.Assessment, bool) {
	if pos < 0 || pos >= len(b.Records) {
		return domain.Assessment{}, false
	}
	return b.Records[pos], true
}

// Loader builds a bundle. It may be slow and may fail.
type Loader func(ctx context.Context) (*Bundle, error)

// Provider loads the bundle at most once on success. Concurrent first
// callers share one load; a failed load is not remembered.
type Provider struct {
	load   Loader
	logger *zap.Logger

	group singleflight.Group

	mu     sync.RWMutex
	bundle *Bundle
}

// NewProvider creates a provider around load.
func NewProvider(load Loader, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{load: load, logger: logger}
}

// NewStaticProvider returns a provider that is already loaded.
func NewStaticProvider(b *Bundle) *Provider {
	return &Provider{logger: zap.NewNop(), bundle: b}
}

// Get returns the bundle, loading it on first use.
// Load failures are reported as domain.ErrIndexUnavailable.
func (p *Provider) Get(ctx context.Context) (*Bundle, error) {
	p.mu.RLock()
	b := p.bundle
	p.mu.RUnlock()
	if b != nil {
		return b, nil
	}

	ch := p.group.DoChan("bundle", func() (any, error) {
		p.mu.RLock()
		loaded := p.bundle
		p.mu.RUnlock()
		if loaded != nil {
			return loaded, nil
		}

		// Detached from the first caller so its cancellation does not fail everyone waiting.
		loaded, err := p.doLoad(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.bundle = loaded
		p.mu.Unlock()
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for index: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Bundle), nil //nolint:forcetypeassert // only *Bundle is stored
	}
}

func (p *Provider) doLoad(ctx context.Context) (*Bundle, error) {
	if p.load == nil {
		return nil, fmt.Errorf("no loader configured: %w", domain.ErrIndexUnavailable)
	}

	start := time.Now()
	b, err := p.load(ctx)
	metrics.IndexLoadDuration.Observe(time.Since(start).Seconds())
	if err == nil && (b == nil || b.Index == nil || b.Embedder == nil) {
		err = errors.New("loader returned an incomplete bundle")
	}
	if err == nil && b.Index.Len() != len(b.Records) {
		err = fmt.Errorf("index has %d vectors but %d records", b.Index.Len(), len(b.Records))
	}
	if err != nil {
		metrics.IndexLoadsTotal.WithLabelValues("error").Inc()
		p.logger.Error("index load failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		if errors.Is(err, domain.ErrIndexUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}

	metrics.IndexLoadsTotal.WithLabelValues("ok").Inc()
	metrics.IndexRecords.Set(float64(len(b.Records)))
	p.logger.Info("index loaded",
		zap.Int("records", len(b.Records)),
		zap.Int("dimension", b.Index.Dim()),
		zap.String("metric", b.Index.Metric().String()),
		zap.String("model", b.Model),
		zap.Duration("took", time.Since(start)),
	)
	return b, nil
}

// Warm loads the bundle eagerly.
func (p *Provider) Warm(ctx context.Context) error {
	_, err := p.Get(ctx)
	return err
}

// Loaded reports whether the bundle has been loaded successfully.
func (p *Provider) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bundle != nil
}

// ArtifactLoader returns a Loader reading the index artifact from src.
// An empty metricOverride keeps the metric recorded in the manifest.
func ArtifactLoader(src artifact.Source, embedder domain.Embedder, metricOverride string) Loader {
	return func(ctx context.Context) (*Bundle, error) {
		a, err := artifact.Load(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("load artifact from %s: %w", src, err)
		}

		metricName := a.Manifest.Metric
		if metricOverride != "" {
			metricName = metricOverride
		}
		metric, err := index.ParseMetric(metricName)
		if err != nil {
			return nil, err
		}

		flat, err := index.NewFlat(a.Manifest.Dimension, metric, a.Vectors)
		if err != nil {
			return nil, fmt.Errorf("build index: %w", err)
		}

		return &Bundle{
			Embedder: embedder,
			Index:    flat,
			Records:  a.Records,
			Model:    a.Manifest.Model,
		}, nil
	}
}
