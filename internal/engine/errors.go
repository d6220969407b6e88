package engine

import "errors"

// Operation-level errors. Each fails a single operation's outcome and
// never aborts sibling operations in the same batch.
var (
	// ErrTenantMismatch indicates an operation declared a tenant other
	// than the authenticated session's tenant
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrUnknownEntityType indicates an entity type not present in the
	// registry
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrInvalidPayload indicates a payload that failed normalization
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrMissingDependency indicates a referenced parent record that
	// does not exist (or is deleted)
	ErrMissingDependency = errors.New("missing dependency")

	// ErrStatePrecondition indicates a named transition applied to a
	// record that is not in the required source state
	ErrStatePrecondition = errors.New("state precondition failed")

	// ErrUnsupportedOperation indicates a transition the entity family
	// does not define
	ErrUnsupportedOperation = errors.New("unsupported operation")
)
