package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every layer. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// ErrConfiguration marks invalid parameters such as chunk size <= overlap.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNotFound marks missing repository state for an operation that requires it.
	ErrNotFound = errors.New("not found")

	// ErrCorruption marks a persisted artifact that failed structural validation.
	// The only recovery is a full rebuild.
	ErrCorruption = errors.New("corrupt artifact")

	// ErrDimensionMismatch marks vector/segment count or width disagreement.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrExternalService marks a failure of the embedding or generation collaborator.
	ErrExternalService = errors.New("external service failed")

	// ErrBusy marks a repository locked by a running save or build.
	ErrBusy = errors.New("repository busy")

	// ErrTimeout is an ErrExternalService caused by an exceeded deadline.
	ErrTimeout = fmt.Errorf("%w: timeout", ErrExternalService)
)
