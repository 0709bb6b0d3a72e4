// Package gemini embeds text with the Gemini API embedding models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/metrics"
)

const (
	defaultModel    = "text-embedding-004"
	providerName    = "gemini"
	queryTaskType   = "RETRIEVAL_QUERY"
	maxBatchPerCall = 100
)

// embedAPI is the subset of genai.Models used here.
type embedAPI interface {
	EmbedContent(
		ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig,
	) (*genai.EmbedContentResponse, error)
}

// Config holds Gemini embedding settings.
type Config struct {
	APIKey     string
	Model      string
	Dimensions int
	// TaskType is sent with every request, e.g. RETRIEVAL_QUERY or RETRIEVAL_DOCUMENT.
	TaskType string
	Logger   *zap.Logger
}

// Embedder implements domain.Embedder and domain.BatchEmbedder over the Gemini API.
type Embedder struct {
	api        embedAPI
	model      string
	dimensions int
	taskType   string
	logger     *zap.Logger
}

// NewEmbedder creates a Gemini embedder configured for the Gemini API backend.
func NewEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, cfg), nil
}

func newEmbedder(api embedAPI, cfg *Config) *Embedder {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	taskType := cfg.TaskType
	if taskType == "" {
		taskType = queryTaskType
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		api:        api,
		model:      model,
		dimensions: cfg.Dimensions,
		taskType:   taskType,
		logger:     logger,
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: vecs[0]}, nil
}

// BatchEmbed implements domain.BatchEmbedder. The Gemini API does not
// report token usage for embeddings, so token counts stay zero.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for offset := 0; offset < len(texts); offset += maxBatchPerCall {
		vecs, err := e.embed(ctx, texts[offset:min(offset+maxBatchPerCall, len(texts))])
		if err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		out = append(out, vecs...)
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: t}},
		}
	}

	cfg := &genai.EmbedContentConfig{TaskType: e.taskType}
	if e.dimensions > 0 {
		dims := int32(e.dimensions) //nolint:gosec // configured dimension fits int32
		cfg.OutputDimensionality = &dims
	}

	start := time.Now()
	resp, err := e.api.EmbedContent(ctx, e.model, contents, cfg)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "api_error").Inc()
		e.logger.Debug("Gemini embedding failed", zap.Int("batch_size", len(texts)), zap.Error(err))
		return nil, wrapAPIError(err)
	}

	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "count_mismatch").Inc()
		return nil, fmt.Errorf("expected %d embeddings, got %d: %w",
			len(texts), got, domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(duration.Seconds())

	vecs := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("empty embedding at %d: %w", i, domain.ErrEmbeddingProviderError)
		}
		vecs[i] = emb.Values
	}
	return vecs, nil
}

// wrapAPIError maps quota errors to domain.ErrRateLimited and the rest to
// domain.ErrEmbeddingProviderError.
func wrapAPIError(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}

	if code == http.StatusTooManyRequests {
		return fmt.Errorf("gemini embedding quota: %w: %w", domain.ErrRateLimited, err)
	}
	return fmt.Errorf("gemini embedding: %w: %w", domain.ErrEmbeddingProviderError, err)
}
