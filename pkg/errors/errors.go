package errors

import (
	"fmt"
)

// ErrNotFound is returned when a resource does not exist.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when credentials are missing or wrong.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrInvalidStateTransition is returned when a state machine refuses a move.
type ErrInvalidStateTransition struct {
	From fmt.Stringer
	To   fmt.Stringer
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrValidation carries a single user-facing validation message.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}

// ErrRemote wraps a failed call to an external endpoint.
type ErrRemote struct {
	Op      string
	Message string
	Err     error
}

func (e *ErrRemote) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ErrRemote) Unwrap() error {
	return e.Err
}
