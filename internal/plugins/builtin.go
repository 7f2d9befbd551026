// Package plugins wires the built-in plugins into a registry.
package plugins

import (
	"fmt"

	"github.com/dorcha-inc/vigil/internal/execution"
	"github.com/dorcha-inc/vigil/internal/plugins/profiler"
	"github.com/dorcha-inc/vigil/internal/plugins/trace"
)

// Builtins returns the descriptors of every built-in plugin.
func Builtins() []*execution.Descriptor {
	return []*execution.Descriptor{
		trace.Descriptor(),
		profiler.Descriptor(),
	}
}

// RegisterBuiltins registers every built-in plugin with r.
func RegisterBuiltins(r *execution.Registry) error {
	for _, d := range Builtins() {
		if err := r.Register(d); err != nil {
			return fmt.Errorf("failed to register built-in plugin %s: %w", d.Name(), err)
		}
	}
	return nil
}
