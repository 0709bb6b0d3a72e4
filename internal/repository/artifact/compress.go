package artifact

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// decompress wraps r according to the file extension (.zst, .lz4, or none).
func decompress(name string, r io.ReadCloser) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(name, ".zst"):
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return &stackedReader{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			r.Close,
		}}, nil
	case strings.HasSuffix(name, ".lz4"):
		return &stackedReader{Reader: lz4.NewReader(r), closers: []func() error{r.Close}}, nil
	default:
		return r, nil
	}
}

// compress wraps w according to the file extension. Closing the returned
// writer flushes the encoder and then closes w.
func compress(name string, w io.WriteCloser) (io.WriteCloser, error) {
	switch {
	case strings.HasSuffix(name, ".zst"):
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return &stackedWriter{Writer: enc, closers: []func() error{enc.Close, w.Close}}, nil
	case strings.HasSuffix(name, ".lz4"):
		enc := lz4.NewWriter(w)
		return &stackedWriter{Writer: enc, closers: []func() error{enc.Close, w.Close}}, nil
	default:
		return w, nil
	}
}

type stackedReader struct {
	io.Reader
	closers []func() error
}

func (s *stackedReader) Close() error {
	return closeAll(s.closers)
}

type stackedWriter struct {
	io.Writer
	closers []func() error
}

func (s *stackedWriter) Close() error {
	return closeAll(s.closers)
}

func closeAll(closers []func() error) error {
	var first error
	for _, c := range closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
