package orchestrate

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("orchestrate: no store configured")
	ErrStoreClosed = errors.New("orchestrate: store closed")

	// Not found errors.
	ErrWorkflowNotFound = errors.New("orchestrate: workflow not found")
	ErrStepNotFound     = errors.New("orchestrate: step not found")

	// Conflict errors.
	ErrWorkflowExists = errors.New("orchestrate: workflow already exists")

	// State errors.
	ErrAlreadyTerminal = errors.New("orchestrate: workflow already terminal")
	ErrInvalidState    = errors.New("orchestrate: invalid state transition")
)
