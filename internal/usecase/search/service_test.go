package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/index"
	"github.com/kailas-cloud/recommender/internal/resource"
)

// --- Mocks ---

type mockEmbedder struct {
	vec      []float32
	tokens   int
	err      error
	called   bool
	lastText string
	deadline bool
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.called = true
	m.lastText = text
	_, m.deadline = ctx.Deadline()
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: m.tokens}, nil
}

type mockBundles struct {
	bundle *resource.Bundle
	err    error
	called bool
}

func (m *mockBundles) Get(context.Context) (*resource.Bundle, error) {
	m.called = true
	return m.bundle, m.err
}

func newBundles(t *testing.T, emb domain.Embedder) *mockBundles {
	t.Helper()
	flat, err := index.NewFlat(2, index.MetricL2, []float32{
		5, 5, // far
		0, 1, // near
		0, 0, // nearest
		0, 2, // mid
	})
	if err != nil {
		t.Fatal(err)
	}
	return &mockBundles{bundle: &resource.Bundle{
		Embedder: emb,
		Index:    flat,
		Records: []domain.Assessment{
			{URL: "far"}, {URL: "near"}, {URL: "nearest"}, {URL: "mid"},
		},
	}}
}

// --- Tests ---

func TestSearch_OrdersNearestFirst(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0, 0}, tokens: 7}
	svc := New(newBundles(t, emb), time.Second)

	ctx, usage := domain.NewContextWithUsage(context.Background())
	hits, err := svc.Search(ctx, "  java developer  ", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"nearest", "near", "mid"}
	if len(hits) != len(want) {
		t.Fatalf("expected %d hits, got %d", len(want), len(hits))
	}
	for i, h := range hits {
		if h.Assessment.URL != want[i] || h.Rank != i {
			t.Errorf("hit %d = %s (rank %d), want %s", i, h.Assessment.URL, h.Rank, want[i])
		}
	}
	if hits[0].Position != 2 || hits[2].Distance != 4 {
		t.Errorf("unexpected annotations: %+v", hits)
	}
	if emb.lastText != "java developer" {
		t.Errorf("expected trimmed query, got %q", emb.lastText)
	}
	if !emb.deadline {
		t.Error("expected embedding call to carry a deadline")
	}
	if usage.TotalTokens != 7 {
		t.Errorf("expected 7 tokens recorded, got %d", usage.TotalTokens)
	}
}

func TestSearch_CandidateCountLargerThanIndex(t *testing.T) {
	svc := New(newBundles(t, &mockEmbedder{vec: []float32{0, 0}}), 0)

	hits, err := svc.Search(context.Background(), "q", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 4 {
		t.Errorf("expected all 4 records, got %d", len(hits))
	}
}

func TestSearch_InvalidQueryDoesNotTouchResources(t *testing.T) {
	tests := []struct {
		name  string
		query string
		k     int
	}{
		{"empty", "", 5},
		{"whitespace", " \t\n", 5},
		{"zero candidates", "java", 0},
		{"negative candidates", "java", -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bundles := &mockBundles{err: errors.New("must not be called")}
			svc := New(bundles, time.Second)

			_, err := svc.Search(context.Background(), tc.query, tc.k)
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Fatalf("expected ErrInvalidQuery, got %v", err)
			}
			if bundles.called {
				t.Error("resource provider must not be called for invalid input")
			}
		})
	}
}

func TestSearch_IndexUnavailable(t *testing.T) {
	svc := New(&mockBundles{err: domain.ErrIndexUnavailable}, time.Second)

	_, err := svc.Search(context.Background(), "java", 5)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestSearch_DimMismatch(t *testing.T) {
	svc := New(newBundles(t, &mockEmbedder{vec: []float32{0, 0, 0}}), time.Second)

	_, err := svc.Search(context.Background(), "java", 5)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	var dm *domain.DimMismatchError
	if !errors.As(err, &dm) || dm.Expected != 2 || dm.Got != 3 {
		t.Errorf("expected dims 2/3, got %+v", dm)
	}
}

func TestSearch_EmbedderErrors(t *testing.T) {
	t.Run("opaque error becomes provider error", func(t *testing.T) {
		svc := New(newBundles(t, &mockEmbedder{err: errors.New("connection reset")}), time.Second)
		_, err := svc.Search(context.Background(), "java", 5)
		if !errors.Is(err, domain.ErrEmbeddingProviderError) {
			t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
		}
	})

	t.Run("rate limit is preserved", func(t *testing.T) {
		svc := New(newBundles(t, &mockEmbedder{err: domain.ErrRateLimited}), time.Second)
		_, err := svc.Search(context.Background(), "java", 5)
		if !errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrEmbeddingProviderError) {
			t.Fatalf("expected bare ErrRateLimited, got %v", err)
		}
	})
}

func TestSearch_Deterministic(t *testing.T) {
	svc := New(newBundles(t, &mockEmbedder{vec: []float32{1, 1}}), time.Second)

	first, err := svc.Search(context.Background(), "java", 4)
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		again, _ := svc.Search(context.Background(), "java", 4)
		for i := range first {
			if first[i].Assessment.URL != again[i].Assessment.URL {
				t.Fatalf("non-deterministic order at %d", i)
			}
		}
	}
}
