package chi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/usecase/recommend"
)

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/ui-recommend", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestUIIndex(t *testing.T) {
	rr := do(t, newTestRouter(&mockRecommender{}), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %q", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `action="/ui-recommend"`) || !strings.Contains(body, `value="10"`) {
		t.Errorf("form not rendered with defaults: %s", body)
	}
}

type configuredMock struct {
	mockRecommender
	cfg recommend.Config
}

func (m *configuredMock) Config() recommend.Config { return m.cfg }

func TestUIIndex_MaxTopKFollowsRecommendDefault(t *testing.T) {
	rr := do(t, newTestRouter(&mockRecommender{}), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	want := fmt.Sprintf(`max="%d"`, recommend.DefaultMaxTopK)
	if !strings.Contains(rr.Body.String(), want) {
		t.Errorf("expected %s in form", want)
	}
}

func TestUIIndex_LimitsFromRecommenderConfig(t *testing.T) {
	rec := &configuredMock{cfg: recommend.Config{DefaultTopK: 7, MaxTopK: 25}}
	rr := do(t, newTestRouter(rec), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	body := rr.Body.String()
	if !strings.Contains(body, `max="25"`) || !strings.Contains(body, `value="7"`) {
		t.Errorf("form limits must come from the recommender config: %s", body)
	}
}

func TestUIRecommend_RendersResults(t *testing.T) {
	rec := &mockRecommender{records: sampleRecords()}
	rr := do(t, newTestRouter(rec), postForm(url.Values{"query": {"java <dev>"}, "top_k": {"4"}}))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if rec.lastTopK != 4 {
		t.Errorf("expected top_k 4, got %d", rec.lastTopK)
	}
	body := rr.Body.String()
	for _, want := range []string{"Java 8 (New)", "OPQ32r", "18 min", "Knowledge &amp; Skills", "java &lt;dev&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in page", want)
		}
	}
}

func TestUIRecommend_Errors(t *testing.T) {
	tests := []struct {
		name   string
		rec    *mockRecommender
		form   url.Values
		status int
		text   string
	}{
		{"bad top_k", &mockRecommender{}, url.Values{"query": {"q"}, "top_k": {"x"}}, http.StatusBadRequest, "must be a number"},
		{"empty query", &mockRecommender{err: domain.ErrInvalidQuery}, url.Values{"query": {""}}, http.StatusBadRequest, "Please enter"},
		{"no results", &mockRecommender{err: domain.ErrNoResults}, url.Values{"query": {"q"}}, http.StatusNotFound, "No matching"},
		{"index down", &mockRecommender{err: domain.ErrIndexUnavailable}, url.Values{"query": {"q"}}, http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, newTestRouter(tc.rec), postForm(tc.form))
			if rr.Code != tc.status {
				t.Fatalf("got %d, want %d", rr.Code, tc.status)
			}
			if !strings.Contains(rr.Body.String(), tc.text) {
				t.Errorf("expected %q in page", tc.text)
			}
		})
	}
}
