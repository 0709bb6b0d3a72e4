// Package indexing embeds a cleaned catalog and packages it as an index artifact.
package indexing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/index"
	"github.com/kailas-cloud/recommender/internal/repository/artifact"
)

const (
	defaultBatchSize   = 64
	defaultConcurrency = 4
)

// Config holds index build settings.
type Config struct {
	Model       string
	Metric      index.Metric
	BatchSize   int
	Concurrency int
	// VectorsFile selects the vectors file name and with it the compression.
	VectorsFile string
}

// Service builds index artifacts.
type Service struct {
	embedder domain.Embedder
	cfg      Config
	logger   *zap.Logger
}

// New creates an indexing Service.
func New(embedder domain.Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embedder: embedder, cfg: cfg, logger: logger}
}

// BuildText renders the text embedded for one catalog record.
func BuildText(a *domain.Assessment) string {
	return fmt.Sprintf("Assessment Name: %s. Description: %s. Test Type: %s. Job Levels: %s.",
		a.Name, a.Description, strings.Join(a.TestTypes, ", "), a.JobLevels)
}

// Build embeds every record and returns the in-memory artifact.
// Vector row i corresponds to records[i].
func (s *Service) Build(ctx context.Context, records []domain.Assessment) (*artifact.Artifact, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("build index: no records")
	}

	start := time.Now()
	vectors := make([][]float32, len(records))
	var tokens int
	tokenCh := make(chan int, (len(records)+s.cfg.BatchSize-1)/s.cfg.BatchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for offset := 0; offset < len(records); offset += s.cfg.BatchSize {
		end := min(offset+s.cfg.BatchSize, len(records))
		g.Go(func() error {
			texts := make([]string, 0, end-offset)
			for i := offset; i < end; i++ {
				texts = append(texts, BuildText(&records[i]))
			}

			res, err := s.embedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed records %d-%d: %w", offset, end-1, err)
			}
			if len(res.Embeddings) != len(texts) {
				return fmt.Errorf("embed records %d-%d: expected %d vectors, got %d: %w",
					offset, end-1, len(texts), len(res.Embeddings), domain.ErrEmbeddingProviderError)
			}
			copy(vectors[offset:end], res.Embeddings)
			tokenCh <- res.TotalTokens

			s.logger.Debug("Embedded batch", zap.Int("from", offset), zap.Int("to", end))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(tokenCh)
	for n := range tokenCh {
		tokens += n
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("build index: empty embedding: %w", domain.ErrEmbeddingProviderError)
	}
	flat := make([]float32, 0, dim*len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("record %d: %w", i, domain.NewDimMismatch(dim, len(v)))
		}
		flat = append(flat, v...)
	}

	s.logger.Info("Index built",
		zap.Int("records", len(records)),
		zap.Int("dimension", dim),
		zap.Int("tokens", tokens),
		zap.Duration("duration", time.Since(start)),
	)

	return &artifact.Artifact{
		Manifest: artifact.Manifest{
			Version:   artifact.FormatVersion,
			Model:     s.cfg.Model,
			Dimension: dim,
			Count:     len(records),
			Metric:    s.cfg.Metric.String(),
			Vectors:   s.cfg.VectorsFile,
			CreatedAt: time.Now().UTC(),
		},
		Vectors: flat,
		Records: records,
	}, nil
}

// BuildAndWrite builds the artifact and writes it to dst.
func (s *Service) BuildAndWrite(
	ctx context.Context, records []domain.Assessment, dst artifact.Source,
) (*artifact.Artifact, error) {
	a, err := s.Build(ctx, records)
	if err != nil {
		return nil, err
	}
	if err := artifact.Write(ctx, dst, a); err != nil {
		return nil, fmt.Errorf("write artifact to %s: %w", dst, err)
	}
	return a, nil
}

func (s *Service) embedBatch(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embedder.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.embedder, texts)
}
