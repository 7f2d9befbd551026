package execution

import "context"

type executionKey struct{}

// WithExecution returns a copy of ctx carrying exec as the current execution.
func WithExecution(ctx context.Context, exec *Context) context.Context {
	return context.WithValue(ctx, executionKey{}, exec)
}

// FromContext returns the active execution carried by ctx, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	exec, ok := ctx.Value(executionKey{}).(*Context)
	return exec, ok && exec != nil
}

// Current returns the execution bound to ctx, or the no-op fallback when
// ctx carries none.
func Current(ctx context.Context) Execution {
	if exec, ok := FromContext(ctx); ok {
		return exec
	}
	return NewNoOp(ProcessColdStart())
}
