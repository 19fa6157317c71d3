package model

import (
	"errors"
	"fmt"
)

// ErrInvalidState indicates an operation is not allowed in the current state.
var ErrInvalidState = errors.New("invalid state")

// InvalidStateError describes a rejected transition. The receiver is left
// unchanged.
type InvalidStateError struct {
	Op    string
	State string
}

func (err *InvalidStateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", err.Op, err.State)
}

// Is reports ErrInvalidState as a match.
func (err *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// NewInvalidState builds an InvalidStateError for op attempted in state.
func NewInvalidState(op string, state fmt.Stringer) error {
	return &InvalidStateError{Op: op, State: state.String()}
}
