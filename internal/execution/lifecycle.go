package execution

import (
	"fmt"

	"github.com/dorcha-inc/vigil/internal/core"
)

// Phase is the lifecycle position of one plugin state within an execution.
// Phases only move forward.
type Phase int

const (
	PhaseCreated Phase = iota
	PhasePreRun
	PhasePostRun
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhasePreRun:
		return "pre"
	case PhasePostRun:
		return "post"
	case PhaseFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// HookFailure records a plugin hook that failed. It never changes the
// outcome of the invocation.
type HookFailure struct {
	Plugin string
	Phase  Phase
	Err    error
}

// HookReporter receives hook failures as they happen.
type HookReporter func(failure HookFailure)

// DefaultHookReporter logs the failure through zap.
func DefaultHookReporter(failure HookFailure) {
	core.LogHookFailure(failure.Plugin, failure.Phase.String(), failure.Err)
}

// RunPreHooks runs every attached plugin's pre-hook in registration order.
// Each hook sees its state in PhaseCreated.
func RunPreHooks(exec *Context) {
	exec.dispatch(PhasePreRun, func(d *Descriptor) func(any) error { return d.preHook })
}

// RunPostHooks runs every attached plugin's post-hook in registration order.
// Callers run it whether or not the handler failed.
func RunPostHooks(exec *Context) {
	exec.dispatch(PhasePostRun, func(d *Descriptor) func(any) error { return d.postHook })
}

// Finalize moves every plugin state to PhaseFinalized and makes the
// context read-only. Calling it again has no effect.
func (c *Context) Finalize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, inst := range c.plugins {
		inst.phase = PhaseFinalized
	}
	c.finalized = true
}

func (c *Context) dispatch(to Phase, hookOf func(*Descriptor) func(any) error) {
	for _, inst := range c.plugins {
		from := c.phaseOf(inst)
		if from >= to {
			c.recordHookFailure(HookFailure{
				Plugin: inst.desc.Name(),
				Phase:  to,
				Err:    NewInvalidPhaseError(inst.desc.Name(), from, to),
			})
			continue
		}

		if hook := hookOf(inst.desc); hook != nil {
			if err := callHook(inst.desc.Name(), to, hook, inst.state); err != nil {
				c.recordHookFailure(HookFailure{Plugin: inst.desc.Name(), Phase: to, Err: err})
			}
		}

		c.mu.Lock()
		inst.phase = to
		c.mu.Unlock()
	}
}

func (c *Context) phaseOf(inst *instance) Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return inst.phase
}

func (c *Context) recordHookFailure(failure HookFailure) {
	c.mu.Lock()
	c.hookFailures = append(c.hookFailures, failure)
	c.mu.Unlock()

	c.reporter(failure)
}

// callHook runs hook, converting a panic into an error
func callHook(plugin string, phase Phase, hook func(any) error, state any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			core.LogPanicRecovery("plugin:"+plugin, rec)
			err = fmt.Errorf("panic in %s %s hook: %v", plugin, phase, rec)
		}
	}()
	return hook(state)
}
