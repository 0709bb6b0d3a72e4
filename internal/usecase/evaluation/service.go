// Package evaluation measures recommendation quality against labelled queries
// and exports predictions for unlabelled ones.
package evaluation

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/recommender/internal/domain"
)

const (
	// DefaultK is the cutoff used for Recall@K.
	DefaultK           = 10
	defaultConcurrency = 4
)

// QueryResult is the outcome for one labelled query.
type QueryResult struct {
	Query     string
	Recall    float64
	Retrieved []string // normalised URLs, best first
}

// Report summarises an evaluation run.
type Report struct {
	K          int
	Results    []QueryResult
	MeanRecall float64
}

// Prediction is one exported recommendation row.
type Prediction struct {
	Query string
	URL   string
}

// Service runs evaluations and predictions.
type Service struct {
	rec         Recommender
	k           int
	concurrency int
}

// New creates a Service. k <= 0 means DefaultK, concurrency <= 0 a small default.
func New(rec Recommender, k, concurrency int) *Service {
	if k <= 0 {
		k = DefaultK
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{rec: rec, k: k, concurrency: concurrency}
}

// Evaluate computes Recall@K per query and the mean across queries.
// A query that yields no results scores 0; any other failure aborts the run.
func (s *Service) Evaluate(ctx context.Context, queries []LabelledQuery) (Report, error) {
	results := make([]QueryResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range queries {
		g.Go(func() error {
			q := queries[i]
			records, err := s.recommend(gctx, q.Query)
			if err != nil {
				return err
			}

			retrieved := make([]string, len(records))
			for j := range records {
				retrieved[j] = NormalizeURL(records[j].URL)
			}
			relevant := make([]string, len(q.Relevant))
			for j, u := range q.Relevant {
				relevant[j] = NormalizeURL(u)
			}

			results[i] = QueryResult{
				Query:     q.Query,
				Recall:    RecallAtK(retrieved, relevant, s.k),
				Retrieved: retrieved,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{K: s.k, Results: results}
	if len(results) > 0 {
		var sum float64
		for _, r := range results {
			sum += r.Recall
		}
		report.MeanRecall = sum / float64(len(results))
	}
	return report, nil
}

// Predict returns up to K recommendations per query, in query order.
func (s *Service) Predict(ctx context.Context, queries []string) ([]Prediction, error) {
	perQuery := make([][]Prediction, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			records, err := s.recommend(gctx, q)
			if err != nil {
				return err
			}
			rows := make([]Prediction, len(records))
			for j := range records {
				rows[j] = Prediction{Query: q, URL: records[j].URL}
			}
			perQuery[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Prediction
	for _, rows := range perQuery {
		out = append(out, rows...)
	}
	return out, nil
}

func (s *Service) recommend(ctx context.Context, query string) ([]domain.Assessment, error) {
	records, err := s.rec.Recommend(ctx, query, s.k)
	if errors.Is(err, domain.ErrNoResults) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}
	return records, nil
}

// WritePredictions writes predictions as a Query,Assessment_url CSV.
func WritePredictions(w io.Writer, preds []Prediction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Query", "Assessment_url"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range preds {
		if err := cw.Write([]string{p.Query, p.URL}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush predictions: %w", err)
	}
	return nil
}
