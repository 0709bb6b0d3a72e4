package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/metrics"
	healthuc "github.com/kailas-cloud/recommender/internal/usecase/health"
	"github.com/kailas-cloud/recommender/internal/usecase/recommend"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Recommender produces balanced recommendations for a query.
type Recommender interface {
	Recommend(ctx context.Context, query string, topK int) ([]domain.Assessment, error)
}

// Server serves the recommendation API and the HTML form.
type Server struct {
	recommend     Recommender
	health        *healthuc.Service
	ui            UIConfig
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// configuredRecommender is satisfied by *recommend.Service.
type configuredRecommender interface {
	Config() recommend.Config
}

// NewServer creates an HTTP API server. Zero UI limits are taken from the
// recommender's own config when it exposes one, so the form and the API agree.
func NewServer(rec Recommender, health *healthuc.Service, ui UIConfig, logger *zap.Logger) *Server {
	if c, ok := rec.(configuredRecommender); ok {
		cfg := c.Config()
		if ui.DefaultTopK <= 0 {
			ui.DefaultTopK = cfg.DefaultTopK
		}
		if ui.MaxTopK <= 0 {
			ui.MaxTopK = cfg.MaxTopK
		}
	}
	if ui.DefaultTopK <= 0 {
		ui.DefaultTopK = domain.DefaultTopK
	}
	if ui.MaxTopK <= 0 {
		ui.MaxTopK = recommend.DefaultMaxTopK
	}
	s := &Server{
		recommend: rec,
		health:    health,
		ui:        ui,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorResponseCodeInvalidQuery),
		sentinelHandler(domain.ErrNoResults, http.StatusNotFound, ErrorResponseCodeNoResults),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorResponseCodeIndexUnavailable),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorResponseCodeRateLimited),
		sentinelHandler(domain.ErrVectorDimMismatch,
			http.StatusInternalServerError, ErrorResponseCodeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError),
	}
	return s
}

// Recommend handles POST /recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.serveRecommend(w, r, req.Query, req.TopK)
}

// RecommendQuery handles GET /recommend?query=&top_k=.
func (s *Server) RecommendQuery(w http.ResponseWriter, r *http.Request) {
	var params RecommendParams
	if err := runtime.BindQueryParameter("form", true, true, "query", r.URL.Query(), &params.Query); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid format for parameter query")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", r.URL.Query(), &params.TopK); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid format for parameter top_k")
		return
	}
	s.serveRecommend(w, r, params.Query, params.TopK)
}

func (s *Server) serveRecommend(w http.ResponseWriter, r *http.Request, query string, topK *int) {
	ctx, usage := domain.NewContextWithUsage(r.Context())
	records, err := s.recommend.Recommend(ctx, query, derefInt(topK))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]AssessmentResponse, len(records))
	for i := range records {
		items[i] = assessmentToResponse(&records[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, RecommendResponse{RecommendedAssessments: items})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set(metrics.EmbeddingTokensHeader, strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrNoResults,
		domain.ErrIndexUnavailable,
		domain.ErrRateLimited,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func assessmentToResponse(a *domain.Assessment) AssessmentResponse {
	tags := a.TestTypes
	if tags == nil {
		tags = []string{}
	}
	return AssessmentResponse{
		URL:             a.URL,
		Name:            a.Name,
		AdaptiveSupport: a.AdaptiveSupport,
		Description:     a.Description,
		Duration:        a.Length,
		RemoteSupport:   a.RemoteSupport,
		TestType:        tags,
	}
}

// derefInt maps an absent top_k to 0, which the recommend service resolves to its default.
func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
