package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals an empty or whitespace-only query, or a non-positive size.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrIndexUnavailable signals that the index or its metadata could not be loaded.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrNoResults signals that a well-formed query produced no recommendations.
	ErrNoResults = errors.New("no results")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// DimMismatchError wraps ErrVectorDimMismatch with both dimensions.
type DimMismatchError struct {
	Expected int
	Got      int
}

func (e *DimMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrVectorDimMismatch.Error(), e.Expected, e.Got)
}

func (e *DimMismatchError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimMismatch creates a dimension mismatch error.
func NewDimMismatch(expected, got int) error {
	return &DimMismatchError{Expected: expected, Got: got}
}
