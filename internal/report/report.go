// Package report defines the wire shape of a finished invocation as handed to
// the transport layer.
package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// Report is the data collected for a single invocation.
type Report struct {
	Token              string             `json:"token"`
	InstallMethod      string             `json:"installMethod,omitempty"`
	InvocationID       string             `json:"invocationId"`
	FunctionName       string             `json:"functionName,omitempty"`
	ColdStart          bool               `json:"coldstart"`
	TimestampMs        int64              `json:"timestamp"`
	DurationNs         int64              `json:"duration"`
	TimedOut           bool               `json:"timedOut,omitempty"`
	Error              *ErrorInfo         `json:"errors,omitempty"`
	Labels             []string           `json:"labels"`
	CustomMetrics      []Metric           `json:"custom_metrics"`
	PerformanceEntries []PerformanceEntry `json:"performanceEntries"`
	Plugins            []Plugin           `json:"plugins"`
	HookFailures       []HookFailure      `json:"hookFailures,omitempty"`
	Agent              Agent              `json:"agent"`
}

// ErrorInfo describes an error or panic raised by the monitored handler.
type ErrorInfo struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Metric is a custom metric; exactly one of S and N is set.
type Metric struct {
	Name string  `json:"name"`
	S    *string `json:"s,omitempty"`
	N    *int64  `json:"n,omitempty"`
}

// PerformanceEntry is a timed measurement recorded during the invocation.
type PerformanceEntry struct {
	Name       string `json:"name"`
	EntryType  string `json:"entryType"`
	StartTime  int64  `json:"startTime"` // unix milliseconds
	DurationNs int64  `json:"duration"`
}

// Plugin describes a registered plugin and whether it ran.
type Plugin struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Homepage string `json:"homepage,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// HookFailure records a plugin hook that failed without affecting the invocation.
type HookFailure struct {
	Plugin  string `json:"plugin"`
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

// Agent identifies the reporting agent.
type Agent struct {
	Runtime string `json:"runtime"`
	Version string `json:"version"`
}

// Encode writes the report as indented JSON.
func (r *Report) Encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
