// Package trace provides the trace plugin: named marks and the measures
// between them, flushed to the execution as performance entries once the
// handler returns.
package trace

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dorcha-inc/vigil/internal/execution"
)

const (
	Name     = "trace"
	Version  = "1.0.0"
	Homepage = "https://github.com/dorcha-inc/vigil"
)

// Token retrieves the trace state of the current execution.
var Token = execution.NewToken[*State](Name)

// ErrMarkNotFound is returned by Measure when a referenced mark was never set.
var ErrMarkNotFound = errors.New("mark not found")

// State collects the marks and measures of one invocation.
type State struct {
	exec  *execution.Context
	clock clockwork.Clock

	mu      sync.Mutex
	marks   map[string]time.Time
	pending []execution.PerformanceEntry
}

// Descriptor returns the trace plugin descriptor. Trace is enabled by default.
func Descriptor() *execution.Descriptor {
	return execution.Define(Token, execution.Definition[*State]{
		Version:          Version,
		Homepage:         Homepage,
		EnabledByDefault: true,
		New:              newState,
		Post:             (*State).flush,
	})
}

func newState(exec *execution.Context) (*State, error) {
	return &State{
		exec:  exec,
		clock: exec.Clock(),
		marks: make(map[string]time.Time),
	}, nil
}

// Mark records the current time under name. Marking an existing name moves it.
func (s *State) Mark(name string) error {
	if name == "" {
		return execution.NewInvalidArgumentError("mark", "must not be empty")
	}

	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks[name] = now
	s.pending = append(s.pending, execution.PerformanceEntry{
		Name:      name,
		EntryType: execution.EntryTypeMark,
		StartTime: now,
	})
	return nil
}

// Measure records the span between two existing marks under name.
func (s *State) Measure(name, startMark, endMark string) error {
	if name == "" {
		return execution.NewInvalidArgumentError("measure", "must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start, ok := s.marks[startMark]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMarkNotFound, startMark)
	}
	end, ok := s.marks[endMark]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMarkNotFound, endMark)
	}

	s.pending = append(s.pending, execution.PerformanceEntry{
		Name:      name,
		EntryType: execution.EntryTypeMeasure,
		StartTime: start,
		Duration:  end.Sub(start),
	})
	return nil
}

// Pending returns how many entries are waiting to be flushed.
func (s *State) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// flush moves the pending entries onto the execution
func (s *State) flush() error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for i := range pending {
		if err := s.exec.AddPerformanceEntry(&pending[i]); err != nil {
			return fmt.Errorf("failed to flush trace entry %s: %w", pending[i].Name, err)
		}
	}
	return nil
}
