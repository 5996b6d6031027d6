package service

import "errors"

// Error kinds surfaced by the approval engine. Callers translate these into
// transport responses with errors.Is; the engine never aborts with partial
// mutations on any of them.
var (
	// ErrNotFound is returned when a step, expense or user does not resolve
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the actor is not the bound approver
	// for a step, or lacks viewing rights on a workflow
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidState is returned when a step is not PENDING, or an expense
	// is not in the status an operation requires
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput is returned for unrecognized action tokens and
	// malformed requests
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a uniqueness constraint is violated
	// during registration
	ErrConflict = errors.New("already exists")
)
