package services

import (
	"errors"
	"fmt"

	"alfredoptarigan/jd-matcher/internal/repositories"
)

var (
	// ErrValidation marks input rejected before any storage or database write.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing job, analysis or candidate.
	ErrNotFound = repositories.ErrNotFound
	// ErrIndexDisabled is returned by search when no vector index is configured.
	ErrIndexDisabled = errors.New("resume index is not configured")
)

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StorageError wraps a failed write or delete against the storage backend.
type StorageError struct {
	Op    string
	Key   string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q failed: %v", e.Op, e.Key, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// ScoringError means the scoring client produced no usable result. It never
// aborts a batch; the candidate is recorded without a score.
type ScoringError struct {
	Cause error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed: %v", e.Cause)
}

func (e *ScoringError) Unwrap() error {
	return e.Cause
}
