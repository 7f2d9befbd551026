// Package service hosts monitored handlers: it creates one execution per
// invocation, drives the plugin lifecycle around the handler and ships the
// resulting report.
package service

import (
	"context"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/dorcha-inc/vigil/internal/config"
	"github.com/dorcha-inc/vigil/internal/core"
	"github.com/dorcha-inc/vigil/internal/execution"
	"github.com/dorcha-inc/vigil/internal/report"
)

// Handler is the monitored unit of work. The context it receives carries the
// invocation's execution; use execution.Current to reach it.
type Handler func(ctx context.Context, input any) (any, error)

// Service runs handlers under monitoring. It is safe for concurrent use; each
// Run call is an independent invocation.
type Service struct {
	cfg          *config.Config
	registry     *execution.Registry
	clock        clockwork.Clock
	coldStart    *execution.ColdStart
	hookReporter execution.HookReporter

	invocations atomic.Int64
	active      *xsync.MapOf[*execution.Context, struct{}]
}

// New creates a Service. The configuration is validated and copied; later
// changes to cfg have no effect.
func New(cfg *config.Config, registry *execution.Registry, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, execution.NewInvalidArgumentError("config", "must not be nil")
	}
	if registry == nil {
		return nil, execution.NewInvalidArgumentError("registry", "must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:       cfg.Clone(),
		registry:  registry,
		clock:     clockwork.NewRealClock(),
		coldStart: execution.ProcessColdStart(),
		active:    xsync.NewMapOf[*execution.Context, struct{}](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Config() *config.Config        { return s.cfg }
func (s *Service) Registry() *execution.Registry { return s.registry }

// Invocations returns how many times Run has been called.
func (s *Service) Invocations() int64 { return s.invocations.Load() }

// Active returns the executions currently running.
func (s *Service) Active() []*execution.Context {
	out := []*execution.Context{}
	s.active.Range(func(exec *execution.Context, _ struct{}) bool {
		out = append(out, exec)
		return true
	})
	return out
}

// invocation tracks the single report of one Run call
type invocation struct {
	exec     *execution.Context
	reported atomic.Bool
}

// Run executes handler as one monitored invocation. Pre-hooks run before the
// handler and post-hooks after it, whatever the handler's outcome. A panic in
// the handler is reported and then re-raised.
func (s *Service) Run(ctx context.Context, host execution.HostContext, input any, handler Handler) (any, error) {
	s.invocations.Add(1)

	// A disabled service still uses up the cold start.
	coldStart := s.coldStart.Consume()

	if !s.cfg.Enabled {
		zap.L().Debug("Monitoring disabled, running handler directly")
		return handler(ctx, input)
	}

	exec, err := execution.NewContext(execution.Params{
		Config:       s.cfg,
		Service:      s,
		Host:         host,
		Input:        input,
		ColdStart:    coldStart,
		Clock:        s.clock,
		HookReporter: s.hookReporter,
	})
	if err != nil {
		zap.L().Error("Failed to create execution, running handler unmonitored"+core.BugReportMessage(), zap.Error(err))
		return handler(ctx, input)
	}

	s.registry.Instantiate(s.cfg, exec)

	s.active.Store(exec, struct{}{})
	defer s.active.Delete(exec)

	inv := &invocation{exec: exec}
	if timer := s.armTimeoutWindow(ctx, inv); timer != nil {
		defer timer.Stop()
	}

	execution.RunPreHooks(exec)
	result, out := callHandler(execution.WithExecution(ctx, exec), handler, input)
	execution.RunPostHooks(exec)
	exec.Finalize()

	duration := s.clock.Since(exec.StartTimestamp())
	s.report(ctx, inv, duration, out)
	core.LogInvocation(exec.InvocationID(), exec.IsColdStarted(), duration.Seconds(), out.asError())

	if out.panicked {
		panic(out.panicVal)
	}
	return result, out.err
}

// armTimeoutWindow schedules an early report shortly before the host
// deadline. It returns nil when there is no deadline or the window is off.
// A deadline already inside the window also gets no early report.
func (s *Service) armTimeoutWindow(ctx context.Context, inv *invocation) clockwork.Timer {
	window := s.cfg.TimeoutWindowDuration()
	deadline, ok := inv.exec.Host().Deadline()
	if !ok || window <= 0 {
		return nil
	}

	fireIn := deadline.Add(-window).Sub(s.clock.Now())
	if fireIn <= 0 {
		zap.L().Debug("Deadline already inside timeout window, not reporting early",
			zap.String("invocation_id", inv.exec.InvocationID()),
			zap.Time("deadline", deadline))
		return nil
	}

	return s.clock.AfterFunc(fireIn, func() {
		zap.L().Warn("Invocation approaching deadline, reporting early",
			zap.String("invocation_id", inv.exec.InvocationID()),
			zap.Time("deadline", deadline))
		s.report(ctx, inv, s.clock.Since(inv.exec.StartTimestamp()), outcome{timedOut: true})
	})
}

// report builds and sends the invocation's report unless it was already sent
func (s *Service) report(ctx context.Context, inv *invocation, duration time.Duration, out outcome) {
	if !inv.reported.CompareAndSwap(false, true) {
		return
	}

	rep := s.buildReport(inv.exec, duration, out)
	if err := s.send(context.WithoutCancel(ctx), rep); err != nil {
		zap.L().Warn("Failed to send report",
			zap.String("invocation_id", rep.InvocationID),
			zap.Error(err))
	}
}

func (s *Service) send(ctx context.Context, rep *report.Report) error {
	factory := s.cfg.ConnectionFactory
	if factory == nil {
		zap.L().Debug("No connection factory configured, dropping report",
			zap.String("invocation_id", rep.InvocationID))
		return nil
	}

	conn, err := factory.Connect(ctx)
	if err != nil {
		return err
	}
	defer core.LogDeferredError(conn.Close)

	return conn.Send(ctx, rep)
}

// callHandler runs handler, capturing a panic instead of unwinding
func callHandler(ctx context.Context, handler Handler, input any) (result any, out outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = outcome{panicked: true, panicVal: rec, stack: string(debug.Stack())}
		}
	}()

	result, err := handler(ctx, input)
	return result, outcome{err: err}
}

func (o outcome) asError() error {
	if o.panicked {
		return &PanicError{Value: o.panicVal}
	}
	return o.err
}

// Interface guard
var _ execution.Service = &Service{}
