package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested document or tag does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates no embedding service is configured.
	// Semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates two embeddings of different sizes were
	// compared. This is a programming error and fails loudly rather than
	// producing a meaningless score.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrPathNotFound indicates no path exists within the requested depth.
	ErrPathNotFound = errors.New("no path found")

	// ErrReindexInProgress indicates a full reindex is already running.
	ErrReindexInProgress = errors.New("reindex in progress")
)

// IndexError records a single document's failure during a batch operation.
// Batches aggregate these and complete instead of aborting.
type IndexError struct {
	// Op is the failing operation name.
	Op string

	// DocID is the document being processed.
	DocID string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.DocID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IndexError) Unwrap() error {
	return e.Err
}
