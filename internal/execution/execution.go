// Package execution implements the per-invocation context: collected
// telemetry, plugin state addressed by typed tokens, and the hook lifecycle.
//
// An Execution is either an active *Context bound to a running invocation
// or the NoOp fallback. Call sites obtain one with Current and never need
// to check which variant they hold.
package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/dorcha-inc/vigil/internal/config"
	"github.com/dorcha-inc/vigil/internal/transport"
)

// Execution is the contract shared by the active context and the no-op
// fallback.
type Execution interface {
	// Active reports whether this is a real invocation context.
	Active() bool
	InvocationID() string

	AddPerformanceEntry(entry *PerformanceEntry) error
	AddCustomMetric(metric *CustomMetric) error
	CustomMetricString(name, value string) error
	CustomMetricInt(name string, value int64) error
	// AddCustomMetrics adds every non-nil metric, skipping nil entries.
	AddCustomMetrics(metrics ...*CustomMetric) error
	Label(text string) error
	// Measure starts a measurement; calling the returned func records it.
	Measure(name string) func() error

	CustomMetrics() []CustomMetric
	PerformanceEntries() []PerformanceEntry
	Labels() []string

	Input() any
	IsColdStarted() bool
	StartTimestamp() time.Time

	Service() Service
	Config() *config.Config
	Host() HostContext
	// Signer returns nil when no signing capability is configured.
	Signer(extension string) transport.Signer

	lookupPlugin(name string) (any, error)
}

// OptionalPlugin returns the state of the plugin addressed by tok. The
// boolean is false when no enabled plugin produced state for this execution.
func OptionalPlugin[S any](e Execution, tok Token[S]) (S, bool, error) {
	var zero S
	if tok.Name() == "" {
		return zero, false, NewInvalidArgumentError("token", "must name a plugin")
	}
	if e == nil {
		return zero, false, nil
	}

	value, err := e.lookupPlugin(tok.Name())
	if err != nil {
		if errors.Is(err, ErrPluginNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}

	state, ok := value.(S)
	if !ok {
		return zero, false, NewTypeMismatchError("plugin "+tok.Name(), typeName[S](), fmt.Sprintf("%T", value))
	}
	return state, true, nil
}

// Plugin is OptionalPlugin that fails with *PluginNotFoundError when the
// plugin is unknown, disabled or failed to initialize.
func Plugin[S any](e Execution, tok Token[S]) (S, error) {
	var zero S
	if tok.Name() == "" {
		return zero, NewInvalidArgumentError("token", "must name a plugin")
	}
	if e == nil {
		return zero, NewPluginNotFoundError(tok.Name(), NotFoundNoExecution)
	}

	value, err := e.lookupPlugin(tok.Name())
	if err != nil {
		return zero, err
	}

	state, ok := value.(S)
	if !ok {
		return zero, NewTypeMismatchError("plugin "+tok.Name(), typeName[S](), fmt.Sprintf("%T", value))
	}
	return state, nil
}

// InputAs returns the invocation input as a T. A nil input yields the zero T.
func InputAs[T any](e Execution) (T, error) {
	var zero T
	if e == nil {
		return zero, nil
	}
	input := e.Input()
	if input == nil {
		return zero, nil
	}
	typed, ok := input.(T)
	if !ok {
		return zero, NewTypeMismatchError("input", typeName[T](), fmt.Sprintf("%T", input))
	}
	return typed, nil
}
