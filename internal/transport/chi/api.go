package chi

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest             ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized           ErrorResponseCode = "unauthorized"
	ErrorResponseCodeInvalidQuery           ErrorResponseCode = "invalid_query"
	ErrorResponseCodeNoResults              ErrorResponseCode = "no_results"
	ErrorResponseCodeIndexUnavailable       ErrorResponseCode = "index_unavailable"
	ErrorResponseCodeVectorDimMismatch      ErrorResponseCode = "vector_dim_mismatch"
	ErrorResponseCodeRateLimited            ErrorResponseCode = "rate_limited"
	ErrorResponseCodeEmbeddingProviderError ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeInternalError          ErrorResponseCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// RecommendRequest is the POST /recommend body.
type RecommendRequest struct {
	Query string `json:"query"`
	// TopK omitted or 0 selects the default of 10; the maximum is 50.
	TopK *int `json:"top_k,omitempty"`
}

// RecommendParams are the GET /recommend query parameters.
type RecommendParams struct {
	Query string `form:"query" json:"query"`
	// TopK omitted or 0 selects the default of 10; the maximum is 50.
	TopK *int `form:"top_k" json:"top_k,omitempty"`
}

// AssessmentResponse is one recommended assessment.
type AssessmentResponse struct {
	URL             string   `json:"url"`
	Name            string   `json:"name"`
	AdaptiveSupport string   `json:"adaptive_support"`
	Description     string   `json:"description"`
	Duration        int      `json:"duration"`
	RemoteSupport   string   `json:"remote_support"`
	TestType        []string `json:"test_type"`
}

// RecommendResponse is the recommendation list, best first.
type RecommendResponse struct {
	RecommendedAssessments []AssessmentResponse `json:"recommended_assessments"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
