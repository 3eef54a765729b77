// Package core provides the memoria client: the public facade over the
// memory store, embedding providers, retrieval, and curation.
package core

import (
	"errors"
	"fmt"

	"github.com/memoria-ai/memoria-go/pkg/embedder"
	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// Predefined errors for common failure scenarios. The embedding and storage
// sentinels are re-exported here so callers can match them without importing
// the lower-level packages.
var (
	// ErrEmbeddingUnavailable indicates the embedding model is not ready.
	ErrEmbeddingUnavailable = embedder.ErrEmbeddingUnavailable

	// ErrCaptioningUnavailable indicates the captioning model is not ready.
	ErrCaptioningUnavailable = embedder.ErrCaptioningUnavailable

	// ErrDimensionMismatch indicates an embedding of the wrong length was
	// written to the store.
	ErrDimensionMismatch = storage.ErrDimensionMismatch

	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = storage.ErrNotFound

	// ErrStoreUnavailable indicates that the storage backend failed.
	ErrStoreUnavailable = storage.ErrUnavailable

	// ErrInvalidOwner indicates an owner with no scope or both scopes set.
	ErrInvalidOwner = storage.ErrInvalidOwner

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// MemoryError wraps errors with operation context.
//
// It records which client operation failed, making error messages more
// informative for debugging.
//
// Example:
//
//	err := &MemoryError{
//	    Op:  "Record",
//	    Err: ErrEmbeddingUnavailable,
//	}
//	// Error() returns: "memoria: Record: embedding model unavailable"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "memoria: <Op>: <Err>"
func (e *MemoryError) Error() string {
	return fmt.Sprintf("memoria: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with MemoryError.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewMemoryError("Record", err)
//	}
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{
		Op:  op,
		Err: err,
	}
}
