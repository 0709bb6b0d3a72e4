package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recommender/internal/domain"
	healthuc "github.com/kailas-cloud/recommender/internal/usecase/health"
)

// --- Mocks ---

type mockRecommender struct {
	records   []domain.Assessment
	err       error
	panics    bool
	lastQuery string
	lastTopK  int
}

func (m *mockRecommender) Recommend(ctx context.Context, query string, topK int) ([]domain.Assessment, error) {
	if m.panics {
		panic("boom")
	}
	m.lastQuery = query
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	if u := domain.UsageFromContext(ctx); u != nil {
		u.AddTokens(12)
	}
	return m.records, nil
}

type mockIndex struct{ loaded bool }

func (m mockIndex) Loaded() bool { return m.loaded }

func sampleRecords() []domain.Assessment {
	return []domain.Assessment{
		{
			Name:            "Java 8 (New)",
			URL:             "https://www.shl.com/products/product-catalog/view/java-8-new/",
			Description:     "Multi-choice test of Java knowledge.",
			TestTypes:       []string{domain.TestTypeKnowledge},
			Length:          18,
			RemoteSupport:   "Yes",
			AdaptiveSupport: "No",
		},
		{
			Name: "OPQ32r",
			URL:  "https://www.shl.com/products/product-catalog/view/opq32r/",
		},
	}
}

func newTestRouter(rec Recommender, apiKeys ...string) http.Handler {
	health := healthuc.New(mockIndex{loaded: true}, nil, nil, false)
	s := NewServer(rec, health, UIConfig{}, zap.NewNop())
	return NewRouter(s, apiKeys, zap.NewNop())
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

// --- Tests ---

func TestRecommend_Post(t *testing.T) {
	rec := &mockRecommender{records: sampleRecords()}
	h := newTestRouter(rec)

	body := strings.NewReader(`{"query":"Java developer who collaborates","top_k":5}`)
	rr := do(t, h, httptest.NewRequest(http.MethodPost, "/recommend", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if rec.lastQuery != "Java developer who collaborates" || rec.lastTopK != 5 {
		t.Errorf("unexpected call: %q/%d", rec.lastQuery, rec.lastTopK)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if rr.Header().Get("X-Embedding-Tokens") != "12" {
		t.Errorf("expected X-Embedding-Tokens=12, got %q", rr.Header().Get("X-Embedding-Tokens"))
	}

	var raw map[string][]map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	items := raw["recommended_assessments"]
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0]
	if first["name"] != "Java 8 (New)" || first["duration"] != float64(18) ||
		first["remote_support"] != "Yes" || first["adaptive_support"] != "No" {
		t.Errorf("unexpected first item: %v", first)
	}
	if tags, ok := items[1]["test_type"].([]any); !ok || len(tags) != 0 {
		t.Errorf("expected empty test_type array, got %v", items[1]["test_type"])
	}
	if _, ok := first["distance"]; ok {
		t.Error("distance must not leave the search boundary")
	}
}

func TestRecommend_PostDefaultTopK(t *testing.T) {
	rec := &mockRecommender{records: sampleRecords()}
	rr := do(t, newTestRouter(rec), httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader(`{"query":"sales"}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if rec.lastTopK != 0 {
		t.Errorf("absent top_k must be passed as 0, got %d", rec.lastTopK)
	}
}

func TestRecommend_PostZeroTopKMeansDefault(t *testing.T) {
	rec := &mockRecommender{records: sampleRecords()}
	body := strings.NewReader(`{"query":"sales","top_k":0}`)
	rr := do(t, newTestRouter(rec), httptest.NewRequest(http.MethodPost, "/recommend", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("explicit top_k 0 must not be rejected, got %d", rr.Code)
	}
	if rec.lastTopK != 0 {
		t.Errorf("explicit top_k 0 must reach the service as 0, got %d", rec.lastTopK)
	}
}

func TestRecommend_PostInvalidBody(t *testing.T) {
	rr := do(t, newTestRouter(&mockRecommender{}), httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader(`{`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrorResponseCodeBadRequest {
		t.Errorf("unexpected code %s", resp.Code)
	}
}

func TestRecommend_Get(t *testing.T) {
	rec := &mockRecommender{records: sampleRecords()}
	q := url.Values{"query": {"data analyst"}, "top_k": {"3"}}
	rr := do(t, newTestRouter(rec), httptest.NewRequest(http.MethodGet, "/recommend?"+q.Encode(), http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if rec.lastQuery != "data analyst" || rec.lastTopK != 3 {
		t.Errorf("unexpected call: %q/%d", rec.lastQuery, rec.lastTopK)
	}
}

func TestRecommend_GetBadParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing query", "top_k=3"},
		{"non-numeric top_k", "query=java&top_k=ten"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &mockRecommender{}
			rr := do(t, newTestRouter(rec), httptest.NewRequest(http.MethodGet, "/recommend?"+tc.query, http.NoBody))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d", rr.Code)
			}
			if rec.lastQuery != "" {
				t.Error("recommender must not be called")
			}
		})
	}
}

func TestRecommend_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrorResponseCode
	}{
		{domain.ErrInvalidQuery, http.StatusBadRequest, ErrorResponseCodeInvalidQuery},
		{domain.ErrNoResults, http.StatusNotFound, ErrorResponseCodeNoResults},
		{domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorResponseCodeIndexUnavailable},
		{domain.ErrRateLimited, http.StatusTooManyRequests, ErrorResponseCodeRateLimited},
		{domain.NewDimMismatch(384, 768), http.StatusInternalServerError, ErrorResponseCodeVectorDimMismatch},
		{domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError},
		{errors.New("secret internals"), http.StatusInternalServerError, ErrorResponseCodeInternalError},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			wrapped := fmt.Errorf("recommend: %w", tc.err)
			rr := do(t, newTestRouter(&mockRecommender{err: wrapped}),
				httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader(`{"query":"q"}`)))

			if rr.Code != tc.status {
				t.Fatalf("got %d, want %d", rr.Code, tc.status)
			}
			resp := decodeError(t, rr)
			if resp.Code != tc.code {
				t.Errorf("got code %s, want %s", resp.Code, tc.code)
			}
			if strings.Contains(resp.Message, "recommend:") || strings.Contains(resp.Message, "secret") {
				t.Errorf("internal message leaked: %q", resp.Message)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		rr := do(t, newTestRouter(&mockRecommender{}), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("got %d", rr.Code)
		}
		var resp HealthResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != "healthy" || resp.Checks["index"] != "ok" {
			t.Errorf("unexpected health: %+v", resp)
		}
	})

	t.Run("degraded", func(t *testing.T) {
		health := healthuc.New(mockIndex{}, nil, nil, true)
		h := NewRouter(NewServer(&mockRecommender{}, health, UIConfig{}, zap.NewNop()), nil, zap.NewNop())
		rr := do(t, h, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("got %d", rr.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	rr := do(t, newTestRouter(&mockRecommender{}), httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestRouter_AuthAppliesToAPIOnly(t *testing.T) {
	h := newTestRouter(&mockRecommender{records: sampleRecords()}, "secret")

	rr := do(t, h, httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader(`{"query":"q"}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("api without key: got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader(`{"query":"q"}`))
	req.Header.Set("Authorization", "Bearer secret")
	if rr := do(t, h, req); rr.Code != http.StatusOK {
		t.Errorf("api with key: got %d", rr.Code)
	}

	if rr := do(t, h, httptest.NewRequest(http.MethodGet, "/", http.NoBody)); rr.Code != http.StatusOK {
		t.Errorf("ui: got %d", rr.Code)
	}
}

func TestRouter_RecoversPanics(t *testing.T) {
	rr := do(t, newTestRouter(&mockRecommender{panics: true}),
		httptest.NewRequest(http.MethodPost, "/recommend", strings.NewReader(`{"query":"q"}`)))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrorResponseCodeInternalError {
		t.Errorf("unexpected code %s", resp.Code)
	}
}

func TestRouter_NotFound(t *testing.T) {
	rr := do(t, newTestRouter(&mockRecommender{}), httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d", rr.Code)
	}
}
