package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Source is where artifact files live: a local directory or an object store prefix.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	String() string
}

// S3Config holds credentials for S3-compatible object storage.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// ParseLocation returns a Source for a location string. "s3://bucket/prefix"
// selects object storage; anything else is treated as a local directory.
func ParseLocation(location string, s3 S3Config) (Source, error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return NewDirSource(location), nil
	}

	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("invalid s3 location %q: bucket is required", location)
	}
	if s3.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required for %q", location)
	}

	client, err := minio.New(s3.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s3.AccessKey, s3.SecretKey, ""),
		Secure: s3.UseSSL,
		Region: s3.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return NewObjectSource(client, bucket, prefix), nil
}

// DirSource reads and writes artifact files in a local directory.
type DirSource struct {
	dir string
}

// NewDirSource creates a directory-backed source.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Open opens a file for reading.
func (s *DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Clean(name)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// Create creates or truncates a file, creating the directory if needed.
func (s *DirSource) Create(_ context.Context, name string) (io.WriteCloser, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	f, err := os.Create(filepath.Join(s.dir, filepath.Clean(name)))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return f, nil
}

func (s *DirSource) String() string { return s.dir }

// objectClient is the subset of the MinIO client used by ObjectSource.
type objectClient interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
	PutObject(
		ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
}

// ObjectSource reads and writes artifact files under a bucket prefix.
type ObjectSource struct {
	client objectClient
	bucket string
	prefix string
}

// NewObjectSource creates an object storage source.
func NewObjectSource(client *minio.Client, bucket, prefix string) *ObjectSource {
	return &ObjectSource{client: client, bucket: bucket, prefix: prefix}
}

func (s *ObjectSource) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open fetches an object. Existence is checked up front because GetObject
// only reports a missing key on first read.
func (s *ObjectSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.key(name)
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("stat s3://%s/%s: %w", s.bucket, key, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	return obj, nil
}

// Create returns a writer that uploads the object on Close.
func (s *ObjectSource) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	return &objectWriter{ctx: ctx, src: s, key: s.key(name)}, nil
}

func (s *ObjectSource) String() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}

type objectWriter struct {
	ctx context.Context //nolint:containedctx // upload happens on Close
	src *ObjectSource
	key string
	buf bytes.Buffer
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p) //nolint:wrapcheck // bytes.Buffer never fails
}

func (w *objectWriter) Close() error {
	_, err := w.src.client.PutObject(w.ctx, w.src.bucket, w.key,
		bytes.NewReader(w.buf.Bytes()), int64(w.buf.Len()), minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", w.src.bucket, w.key, err)
	}
	return nil
}
