package collection

import (
	"errors"

	"github.com/erp/backoffice/internal/domain/shared"
)

// Sentinel errors for collection
var (
	// ErrCollectorNotFound is returned when no collector is registered for a
	// supplier's integration type and endpoint
	ErrCollectorNotFound = errors.New("collection: no collector for integration")

	// ErrCompletionDeferred is returned by collectors that hand the run to an
	// out-of-process worker which reports completion later
	ErrCompletionDeferred = errors.New("collection: completion deferred to remote worker")

	// ErrFatal marks errors that abort a whole run, such as rejected
	// credentials on the first page
	ErrFatal = errors.New("collection: fatal collection error")

	// ErrJobTimeout is recorded when a job exceeds its deadline
	ErrJobTimeout = errors.New("collection: job timed out")
)

// Domain errors surfaced to callers
var (
	ErrJobNotFound          = shared.NewDomainError(shared.CodeNotFound, "Collection job not found")
	ErrJobAlreadyFinished   = shared.NewDomainError(shared.CodeInvalidState, "Collection job already finished")
	ErrInvalidTransition    = shared.NewDomainError(shared.CodeInvalidState, "Invalid collection job transition")
	ErrCollectionInProgress = shared.NewDomainError(shared.CodeConflict, "A collection is already running for this supplier")
	ErrInvalidWindow        = shared.NewDomainError(shared.CodeInvalidInput, "Invalid collection window")
)
