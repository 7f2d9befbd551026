package service

import (
	"github.com/jonboulle/clockwork"

	"github.com/dorcha-inc/vigil/internal/execution"
)

// Option customises a Service.
type Option func(*Service)

// WithClock sets the clock used for timestamps and the timeout window.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithColdStart replaces the process cold-start cell, mostly for tests.
func WithColdStart(cs *execution.ColdStart) Option {
	return func(s *Service) {
		s.coldStart = cs
	}
}

// WithHookReporter sets the reporter handed to every execution.
func WithHookReporter(reporter execution.HookReporter) Option {
	return func(s *Service) {
		s.hookReporter = reporter
	}
}
