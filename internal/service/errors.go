package service

import "fmt"

// PanicError wraps a value a handler panicked with, for logging.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// Interface guard
var _ error = &PanicError{}
