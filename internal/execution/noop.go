package execution

import (
	"time"

	"github.com/dorcha-inc/vigil/internal/config"
	"github.com/dorcha-inc/vigil/internal/transport"
)

// NoOp is the Execution used outside of any invocation. Writes are accepted
// and discarded; reads return empty values.
type NoOp struct {
	coldStart bool
}

// NewNoOp creates a fallback that reports cs's current cold-start value
// without consuming it.
func NewNoOp(cs *ColdStart) NoOp {
	return NoOp{coldStart: cs.Peek()}
}

func (NoOp) Active() bool         { return false }
func (NoOp) InvocationID() string { return "" }

func (NoOp) AddPerformanceEntry(*PerformanceEntry) error { return nil }
func (NoOp) AddCustomMetric(*CustomMetric) error         { return nil }
func (NoOp) CustomMetricString(string, string) error     { return nil }
func (NoOp) CustomMetricInt(string, int64) error         { return nil }
func (NoOp) AddCustomMetrics(...*CustomMetric) error     { return nil }
func (NoOp) Label(string) error                          { return nil }
func (NoOp) Measure(string) func() error                 { return func() error { return nil } }
func (NoOp) CustomMetrics() []CustomMetric               { return []CustomMetric{} }
func (NoOp) PerformanceEntries() []PerformanceEntry      { return []PerformanceEntry{} }
func (NoOp) Labels() []string                            { return []string{} }
func (NoOp) Input() any                                  { return nil }
func (n NoOp) IsColdStarted() bool                       { return n.coldStart }
func (NoOp) StartTimestamp() time.Time                   { return time.Time{} }
func (NoOp) Service() Service                            { return nil }
func (NoOp) Config() *config.Config                      { return nil }
func (NoOp) Host() HostContext                           { return PlaceholderHost() }
func (NoOp) Signer(string) transport.Signer              { return nil }

func (NoOp) lookupPlugin(name string) (any, error) {
	return nil, NewPluginNotFoundError(name, NotFoundNoExecution)
}

// Interface guard
var _ Execution = NoOp{}
