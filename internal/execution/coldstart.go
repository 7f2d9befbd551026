package execution

import "sync/atomic"

// ColdStart tracks whether the process has handled an invocation yet. It is
// the only process-wide mutable state of the agent.
type ColdStart struct {
	thawed atomic.Bool
}

// NewColdStart creates a cell for a process that has not run anything yet.
// Tests use it in place of ProcessColdStart.
func NewColdStart() *ColdStart {
	return &ColdStart{}
}

// Consume reports whether this call is the first one; exactly one caller
// ever observes true.
func (c *ColdStart) Consume() bool {
	return c.thawed.CompareAndSwap(false, true)
}

// Peek reports whether the next Consume would observe a cold start.
func (c *ColdStart) Peek() bool {
	return !c.thawed.Load()
}

var processColdStart = NewColdStart()

// ProcessColdStart returns the cell shared by the whole process.
func ProcessColdStart() *ColdStart {
	return processColdStart
}
