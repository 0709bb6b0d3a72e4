package artifact

import (
	"errors"
	"fmt"
	"time"
)

// FormatVersion is the artifact layout version written by this package.
const FormatVersion = 1

// Default file names inside an artifact location.
const (
	ManifestFile = "manifest.json"
	VectorsFile  = "vectors.f32.zst"
	MetadataFile = "metadata.jsonl"
)

// ErrNotFound signals a missing artifact file.
var ErrNotFound = errors.New("artifact: not found")

// Manifest describes an index artifact. Vector row i corresponds to metadata line i.
type Manifest struct {
	Version   int       `json:"version"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Count     int       `json:"count"`
	Metric    string    `json:"metric"`
	Vectors   string    `json:"vectors"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the manifest for structural consistency.
func (m *Manifest) Validate() error {
	if m.Version != FormatVersion {
		return fmt.Errorf("unsupported artifact version %d", m.Version)
	}
	if m.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", m.Dimension)
	}
	if m.Count < 0 {
		return fmt.Errorf("count must be non-negative, got %d", m.Count)
	}
	if m.Vectors == "" || m.Metadata == "" {
		return errors.New("vectors and metadata file names are required")
	}
	return nil
}
