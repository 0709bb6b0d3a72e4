package chi

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recommender/internal/domain"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}).ParseFS(templatesFS, "templates/index.html"))

type pageData struct {
	Query   string
	TopK    int
	MaxTopK int
	Error   string
	Results []AssessmentResponse
}

// UIConfig sets the form defaults.
type UIConfig struct {
	DefaultTopK int
	MaxTopK     int
}

// UIIndex handles GET /.
func (s *Server) UIIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderPage(w, http.StatusOK, s.newPage())
}

// UIRecommend handles POST /ui-recommend.
func (s *Server) UIRecommend(w http.ResponseWriter, r *http.Request) {
	page := s.newPage()
	if err := r.ParseForm(); err != nil {
		page.Error = "Could not read the form."
		s.renderPage(w, http.StatusBadRequest, page)
		return
	}

	page.Query = r.PostForm.Get("query")
	if raw := strings.TrimSpace(r.PostForm.Get("top_k")); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			page.Error = "Results must be a number."
			s.renderPage(w, http.StatusBadRequest, page)
			return
		}
		page.TopK = k
	}

	records, err := s.recommend.Recommend(r.Context(), page.Query, page.TopK)
	if err != nil {
		status, msg := uiError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("ui recommendation failed", zap.Error(err))
		}
		page.Error = msg
		s.renderPage(w, status, page)
		return
	}

	page.Results = make([]AssessmentResponse, len(records))
	for i := range records {
		page.Results[i] = assessmentToResponse(&records[i])
	}
	s.renderPage(w, http.StatusOK, page)
}

func (s *Server) newPage() pageData {
	return pageData{TopK: s.ui.DefaultTopK, MaxTopK: s.ui.MaxTopK}
}

func (s *Server) renderPage(w http.ResponseWriter, status int, page pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, page); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

func uiError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest, "Please enter a job description or query."
	case errors.Is(err, domain.ErrNoResults):
		return http.StatusNotFound, "No matching assessments found."
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests, try again shortly."
	default:
		return http.StatusServiceUnavailable, "The recommendation service is unavailable right now."
	}
}
