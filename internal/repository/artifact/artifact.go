// Package artifact reads and writes prebuilt index artifacts: a JSON manifest,
// a row-major float32 vector file and a JSONL metadata file.
package artifact

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kailas-cloud/recommender/internal/db"
	"github.com/kailas-cloud/recommender/internal/domain"
)

const maxMetadataLine = 4 << 20

// Artifact is a fully loaded index artifact.
type Artifact struct {
	Manifest Manifest
	Vectors  []float32
	Records  []domain.Assessment
}

// Load reads the manifest, vectors and metadata from src and checks that
// they agree on count and dimension.
func Load(ctx context.Context, src Source) (*Artifact, error) {
	m, err := readManifest(ctx, src)
	if err != nil {
		return nil, err
	}

	vectors, err := readVectors(ctx, src, m)
	if err != nil {
		return nil, err
	}

	records, err := readMetadata(ctx, src, m)
	if err != nil {
		return nil, err
	}

	return &Artifact{Manifest: *m, Vectors: vectors, Records: records}, nil
}

func readManifest(ctx context.Context, src Source) (*Manifest, error) {
	rc, err := src.Open(ctx, ManifestFile)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only

	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

func readVectors(ctx context.Context, src Source, m *Manifest) ([]float32, error) {
	raw, err := src.Open(ctx, m.Vectors)
	if err != nil {
		return nil, err
	}
	rc, err := decompress(m.Vectors, raw)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	vectors, err := db.DecodeVector(data)
	if err != nil {
		return nil, fmt.Errorf("decode vectors: %w", err)
	}
	if want := m.Count * m.Dimension; len(vectors) != want {
		return nil, fmt.Errorf("vectors: expected %d values (%d x %d), got %d",
			want, m.Count, m.Dimension, len(vectors))
	}
	return vectors, nil
}

func readMetadata(ctx context.Context, src Source, m *Manifest) ([]domain.Assessment, error) {
	raw, err := src.Open(ctx, m.Metadata)
	if err != nil {
		return nil, err
	}
	rc, err := decompress(m.Metadata, raw)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only

	records := make([]domain.Assessment, 0, m.Count)
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 64*1024), maxMetadataLine)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var a domain.Assessment
		if err := json.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("metadata line %d: %w", line, err)
		}
		records = append(records, a)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	if len(records) != m.Count {
		return nil, fmt.Errorf("metadata: expected %d records, got %d", m.Count, len(records))
	}
	return records, nil
}

// Write stores an artifact at dst. The manifest is written last so a reader
// never sees a manifest pointing at incomplete files.
func Write(ctx context.Context, dst Source, a *Artifact) error {
	m := a.Manifest
	m.Version = FormatVersion
	m.Count = len(a.Records)
	if m.Vectors == "" {
		m.Vectors = VectorsFile
	}
	if m.Metadata == "" {
		m.Metadata = MetadataFile
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	if len(a.Vectors) != m.Count*m.Dimension {
		return fmt.Errorf("vectors: expected %d values (%d x %d), got %d",
			m.Count*m.Dimension, m.Count, m.Dimension, len(a.Vectors))
	}

	if err := writeFile(ctx, dst, m.Vectors, func(w io.Writer) error {
		_, err := w.Write(db.EncodeVector(a.Vectors))
		return err //nolint:wrapcheck // wrapped by writeFile
	}); err != nil {
		return err
	}

	if err := writeFile(ctx, dst, m.Metadata, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for i := range a.Records {
			if err := enc.Encode(&a.Records[i]); err != nil {
				return err //nolint:wrapcheck // wrapped by writeFile
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return writeFile(ctx, dst, ManifestFile, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&m) //nolint:wrapcheck // wrapped by writeFile
	})
}

func writeFile(ctx context.Context, dst Source, name string, fill func(io.Writer) error) error {
	raw, err := dst.Create(ctx, name)
	if err != nil {
		return err
	}
	w, err := compress(name, raw)
	if err != nil {
		_ = raw.Close()
		return err
	}
	bw := bufio.NewWriter(w)
	if err := fill(bw); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		_ = w.Close()
		return fmt.Errorf("flush %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// IsNotFound reports whether err means the artifact or one of its files is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
