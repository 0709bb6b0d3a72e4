package artifact

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/recommender/internal/domain"
)

func sampleArtifact(vectorsFile string) *Artifact {
	return &Artifact{
		Manifest: Manifest{
			Model:     "all-MiniLM-L6-v2",
			Dimension: 2,
			Metric:    "l2",
			Vectors:   vectorsFile,
		},
		Vectors: []float32{0.5, -1, 3, 4.25},
		Records: []domain.Assessment{
			{Name: "Java 8 (New)", URL: "https://example.com/java-8", TestTypes: []string{"Knowledge & Skills"}, Length: 18},
			{Name: "OPQ32r", URL: "https://example.com/opq32r", TestTypes: []string{"Personality & Behavior"}},
		},
	}
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	for _, name := range []string{"vectors.f32.zst", "vectors.f32.lz4", "vectors.f32"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := NewDirSource(t.TempDir())

			if err := Write(ctx, src, sampleArtifact(name)); err != nil {
				t.Fatalf("Write: %v", err)
			}

			got, err := Load(ctx, src)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.Manifest.Count != 2 || got.Manifest.Version != FormatVersion {
				t.Errorf("unexpected manifest: %+v", got.Manifest)
			}
			want := []float32{0.5, -1, 3, 4.25}
			for i := range want {
				if got.Vectors[i] != want[i] {
					t.Fatalf("vectors = %v, want %v", got.Vectors, want)
				}
			}
			if got.Records[0].Name != "Java 8 (New)" || got.Records[0].Length != 18 {
				t.Errorf("record 0 = %+v", got.Records[0])
			}
			if got.Records[1].TestTypes[0] != "Personality & Behavior" {
				t.Errorf("record 1 = %+v", got.Records[1])
			}
		})
	}
}

func TestLoad_MissingManifest(t *testing.T) {
	_, err := Load(context.Background(), NewDirSource(t.TempDir()))
	if !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoad_CountMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := NewDirSource(dir)
	if err := Write(ctx, src, sampleArtifact("vectors.f32")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// drop the last metadata line
	path := filepath.Join(dir, MetadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.SplitAfter(strings.TrimSpace(string(data)), "\n")
	if err := os.WriteFile(path, []byte(lines[0]), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err = Load(ctx, src)
	if err == nil || !strings.Contains(err.Error(), "expected 2 records") {
		t.Fatalf("expected count mismatch, got %v", err)
	}
}

func TestLoad_TruncatedVectors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := NewDirSource(dir)
	if err := Write(ctx, src, sampleArtifact("vectors.f32")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "vectors.f32"), make([]byte, 12), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(ctx, src); err == nil {
		t.Fatal("expected error for short vector file")
	}
}

func TestWrite_RejectsShapeMismatch(t *testing.T) {
	a := sampleArtifact("")
	a.Vectors = a.Vectors[:3]
	if err := Write(context.Background(), NewDirSource(t.TempDir()), a); err == nil {
		t.Fatal("expected error for ragged vectors")
	}
}

func TestManifestValidate(t *testing.T) {
	ok := Manifest{Version: FormatVersion, Dimension: 4, Vectors: "v", Metadata: "m"}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := []Manifest{
		{Version: 2, Dimension: 4, Vectors: "v", Metadata: "m"},
		{Version: FormatVersion, Dimension: 0, Vectors: "v", Metadata: "m"},
		{Version: FormatVersion, Dimension: 4, Count: -1, Vectors: "v", Metadata: "m"},
		{Version: FormatVersion, Dimension: 4, Metadata: "m"},
	}
	for i, m := range bad {
		if err := m.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestParseLocation(t *testing.T) {
	src, err := ParseLocation("/var/lib/index", S3Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := src.(*DirSource); !ok {
		t.Errorf("expected DirSource, got %T", src)
	}

	if _, err := ParseLocation("s3:///prefix", S3Config{Endpoint: "localhost:9000"}); err == nil {
		t.Error("expected error for missing bucket")
	}
	if _, err := ParseLocation("s3://bucket/prefix", S3Config{}); err == nil {
		t.Error("expected error for missing endpoint")
	}

	src, err = ParseLocation("s3://bucket/indexes/v1", S3Config{Endpoint: "localhost:9000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.String() != "s3://bucket/indexes/v1" {
		t.Errorf("String() = %q", src.String())
	}
}
