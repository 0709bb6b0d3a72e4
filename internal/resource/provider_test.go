package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/index"
	"github.com/kailas-cloud/recommender/internal/repository/artifact"
)

type fixedEmbedder struct{ vec []float32 }

func (f *fixedEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: f.vec}, nil
}

func testBundle(t *testing.T) *Bundle {
	t.Helper()
	flat, err := index.NewFlat(2, index.MetricL2, []float32{0, 0, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	return &Bundle{
		Embedder: &fixedEmbedder{vec: []float32{0, 0}},
		Index:    flat,
		Records:  []domain.Assessment{{URL: "a"}, {URL: "b"}},
	}
}

func TestProvider_ConcurrentFirstCallsShareOneLoad(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	b := testBundle(t)

	p := NewProvider(func(context.Context) (*Bundle, error) {
		calls.Add(1)
		<-release
		return b, nil
	}, nil)

	const n = 16
	var wg sync.WaitGroup
	results := make([]*Bundle, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = p.Get(context.Background())
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 load, got %d", got)
	}
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, errs[i])
		}
		if results[i] != b {
			t.Fatalf("caller %d: got a different bundle", i)
		}
	}
	if !p.Loaded() {
		t.Error("expected provider to report loaded")
	}

	if _, err := p.Get(context.Background()); err != nil || calls.Load() != 1 {
		t.Errorf("expected cached bundle without reload, err=%v calls=%d", err, calls.Load())
	}
}

func TestProvider_FailedLoadIsRetried(t *testing.T) {
	var calls atomic.Int32
	b := testBundle(t)
	p := NewProvider(func(context.Context) (*Bundle, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("disk on fire")
		}
		return b, nil
	}, nil)

	_, err := p.Get(context.Background())
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if p.Loaded() {
		t.Fatal("failed load must not mark provider loaded")
	}

	got, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got != b || calls.Load() != 2 {
		t.Errorf("unexpected state after retry: calls=%d", calls.Load())
	}
}

func TestProvider_RejectsMisalignedBundle(t *testing.T) {
	b := testBundle(t)
	b.Records = b.Records[:1]
	p := NewProvider(func(context.Context) (*Bundle, error) { return b, nil }, nil)

	if err := p.Warm(context.Background()); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestProvider_NoLoader(t *testing.T) {
	p := NewProvider(nil, nil)
	if _, err := p.Get(context.Background()); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestProvider_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	p := NewProvider(func(context.Context) (*Bundle, error) {
		<-release
		return nil, errors.New("never")
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Get(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestStaticProvider(t *testing.T) {
	b := testBundle(t)
	p := NewStaticProvider(b)
	if !p.Loaded() {
		t.Fatal("static provider must be loaded")
	}
	got, err := p.Get(context.Background())
	if err != nil || got != b {
		t.Fatalf("unexpected result: %v", err)
	}
	if rec, ok := got.Record(1); !ok || rec.URL != "b" {
		t.Errorf("Record(1) = %+v, %v", rec, ok)
	}
	if _, ok := got.Record(2); ok {
		t.Error("expected out-of-range lookup to fail")
	}
}

func TestArtifactLoader(t *testing.T) {
	ctx := context.Background()
	src := artifact.NewDirSource(t.TempDir())
	err := artifact.Write(ctx, src, &artifact.Artifact{
		Manifest: artifact.Manifest{Model: "test-model", Dimension: 2, Metric: "l2"},
		Vectors:  []float32{0, 0, 3, 4},
		Records:  []domain.Assessment{{URL: "a"}, {URL: "b"}},
	})
	if err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	emb := &fixedEmbedder{vec: []float32{0, 0}}
	b, err := ArtifactLoader(src, emb, "cosine")(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Index.Len() != 2 || b.Index.Metric() != index.MetricCosine || b.Model != "test-model" {
		t.Errorf("unexpected bundle: len=%d metric=%s model=%s", b.Index.Len(), b.Index.Metric(), b.Model)
	}

	if _, err := ArtifactLoader(artifact.NewDirSource(t.TempDir()), emb, "")(ctx); !artifact.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
