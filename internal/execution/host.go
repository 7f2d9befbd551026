package execution

import (
	"time"

	"github.com/dorcha-inc/vigil/internal/config"
)

// HostContext is the platform's view of the running invocation.
type HostContext interface {
	RequestID() string
	FunctionName() string
	// Deadline reports when the platform will terminate the invocation.
	Deadline() (time.Time, bool)
}

// Host is a plain HostContext.
type Host struct {
	ID         string
	Function   string
	DeadlineAt time.Time
}

func (h Host) RequestID() string    { return h.ID }
func (h Host) FunctionName() string { return h.Function }

func (h Host) Deadline() (time.Time, bool) {
	return h.DeadlineAt, !h.DeadlineAt.IsZero()
}

const placeholderFunctionName = "unknown"

// PlaceholderHost is used when the platform supplies no invocation context.
func PlaceholderHost() HostContext {
	return Host{Function: placeholderFunctionName}
}

// Service is the hosting runtime that owns executions.
type Service interface {
	Config() *config.Config
	Registry() *Registry
	Invocations() int64
}

// Interface guard
var _ HostContext = Host{}
