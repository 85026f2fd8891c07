package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmptyInput signals text that is empty after normalization.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidArgument signals a malformed request parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingBackend signals an embedding backend failure.
	ErrEmbeddingBackend = errors.New("embedding backend error")
	// ErrSentimentBackend signals a sentiment backend failure.
	ErrSentimentBackend = errors.New("sentiment backend error")
	// ErrCrossTenantAccess signals an attempt to touch another organization's document.
	ErrCrossTenantAccess = errors.New("cross-tenant access denied")
)

// CrossTenantAccessError wraps ErrCrossTenantAccess with the offending document ID.
type CrossTenantAccessError struct {
	DocumentID string
}

func (e *CrossTenantAccessError) Error() string {
	return fmt.Sprintf("%s: document %s belongs to another organization", ErrCrossTenantAccess.Error(), e.DocumentID)
}

func (e *CrossTenantAccessError) Unwrap() error { return ErrCrossTenantAccess }

// NewCrossTenantAccess creates a cross-tenant access error.
func NewCrossTenantAccess(documentID string) error {
	return &CrossTenantAccessError{DocumentID: documentID}
}
