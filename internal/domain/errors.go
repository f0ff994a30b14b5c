package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument signals a malformed request parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrNotReady signals a query against a recommender that has never published an index.
	ErrNotReady = errors.New("index not ready")
	// ErrEmbeddingFailure signals that text could not be embedded during a build or a query.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrDuplicateIdentifier signals two index entries sharing one article ID.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrRebuildSuperseded signals that a newer rebuild replaced this one before it published.
	ErrRebuildSuperseded = errors.New("rebuild superseded")
	// ErrClosed signals use of a recommender after Close.
	ErrClosed = errors.New("recommender closed")
)

// DuplicateIdentifierError wraps ErrDuplicateIdentifier with the offending ID.
type DuplicateIdentifierError struct {
	ID int64
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("%s: %d", ErrDuplicateIdentifier.Error(), e.ID)
}

func (e *DuplicateIdentifierError) Unwrap() error { return ErrDuplicateIdentifier }

// NewDuplicateIdentifier creates a duplicate identifier error.
func NewDuplicateIdentifier(id int64) error {
	return &DuplicateIdentifierError{ID: id}
}
