package execution

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrPluginNotFound  = errors.New("plugin not found")
	ErrDuplicatePlugin = errors.New("duplicate plugin")
	ErrInvalidPhase    = errors.New("invalid plugin phase transition")
)

// InvalidArgumentError is returned when a required argument is missing or a
// name or label breaks the codepoint limit.
type InvalidArgumentError struct {
	Argument string `json:"argument"`
	Reason   string `json:"reason"`
}

// NewInvalidArgumentError creates a new InvalidArgumentError
func NewInvalidArgumentError(argument, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Argument: argument, Reason: reason}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// TypeMismatchError is returned when a stored value cannot be viewed as the
// requested type.
type TypeMismatchError struct {
	Subject string `json:"subject"`
	Want    string `json:"want"`
	Got     string `json:"got"`
}

// NewTypeMismatchError creates a new TypeMismatchError
func NewTypeMismatchError(subject, want, got string) *TypeMismatchError {
	return &TypeMismatchError{Subject: subject, Want: want, Got: got}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for %s: want %s, got %s", e.Subject, e.Want, e.Got)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// NotFoundReason says why a plugin has no state in an execution.
type NotFoundReason string

const (
	NotFoundUnknown     NotFoundReason = "unknown"
	NotFoundDisabled    NotFoundReason = "disabled"
	NotFoundFailed      NotFoundReason = "failed"
	NotFoundNoExecution NotFoundReason = "no-execution"
)

// PluginNotFoundError is returned by Plugin when no enabled, initialized
// instance exists. The reasons differ only in the message.
type PluginNotFoundError struct {
	Name       string         `json:"name"`
	Reason     NotFoundReason `json:"reason"`
	Suggestion string         `json:"suggestion,omitempty"`
	Cause      error          `json:"-"`
}

// NewPluginNotFoundError creates a new PluginNotFoundError
func NewPluginNotFoundError(name string, reason NotFoundReason) *PluginNotFoundError {
	return &PluginNotFoundError{Name: name, Reason: reason}
}

func (e *PluginNotFoundError) Error() string {
	switch e.Reason {
	case NotFoundDisabled:
		return fmt.Sprintf("plugin not found: %s is disabled", e.Name)
	case NotFoundFailed:
		return fmt.Sprintf("plugin not found: %s failed to initialize: %v", e.Name, e.Cause)
	case NotFoundNoExecution:
		return fmt.Sprintf("plugin not found: %s requested outside of an active execution", e.Name)
	default:
		if e.Suggestion != "" {
			return fmt.Sprintf("plugin not found: %s is not registered (did you mean %q?)", e.Name, e.Suggestion)
		}
		return fmt.Sprintf("plugin not found: %s is not registered", e.Name)
	}
}

func (e *PluginNotFoundError) Is(target error) bool {
	return target == ErrPluginNotFound
}

func (e *PluginNotFoundError) Unwrap() error {
	return e.Cause
}

// DuplicatePluginError is returned when a plugin name is registered twice.
type DuplicatePluginError struct {
	Name string `json:"name"`
}

// NewDuplicatePluginError creates a new DuplicatePluginError
func NewDuplicatePluginError(name string) *DuplicatePluginError {
	return &DuplicatePluginError{Name: name}
}

func (e *DuplicatePluginError) Error() string {
	return fmt.Sprintf("duplicate plugin name: %s", e.Name)
}

func (e *DuplicatePluginError) Is(target error) bool {
	return target == ErrDuplicatePlugin
}

// InvalidPhaseError is reported when a hook dispatch would move a plugin's
// phase backwards.
type InvalidPhaseError struct {
	Plugin string `json:"plugin"`
	From   Phase  `json:"from"`
	To     Phase  `json:"to"`
}

// NewInvalidPhaseError creates a new InvalidPhaseError
func NewInvalidPhaseError(plugin string, from, to Phase) *InvalidPhaseError {
	return &InvalidPhaseError{Plugin: plugin, From: from, To: to}
}

func (e *InvalidPhaseError) Error() string {
	return fmt.Sprintf("plugin %s cannot move from %s to %s", e.Plugin, e.From, e.To)
}

func (e *InvalidPhaseError) Is(target error) bool {
	return target == ErrInvalidPhase
}

// Interface guards
var (
	_ error = &InvalidArgumentError{}
	_ error = &TypeMismatchError{}
	_ error = &PluginNotFoundError{}
	_ error = &DuplicatePluginError{}
	_ error = &InvalidPhaseError{}
)
