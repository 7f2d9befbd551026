package execution

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/dorcha-inc/vigil/internal/config"
)

// counterState is the execution state of the "counter" test plugin
type counterState struct {
	exec     *Context
	preSeen  Phase
	pre      int
	post     int
	sequence *[]string
}

type otherState struct{}

var (
	counterToken = NewToken[*counterState]("counter")
	otherToken   = NewToken[*otherState]("other")
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Token = "test-token"
	return cfg
}

func newTestContext(t *testing.T, cfg *config.Config) (*Context, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	exec, err := NewContext(Params{
		Config:       cfg,
		Clock:        clock,
		InvocationID: "inv-1",
		HookReporter: func(HookFailure) {},
	})
	require.NoError(t, err)
	return exec, clock
}

// counterDescriptor builds a plugin whose hooks append to sequence
func counterDescriptor(enabledByDefault bool, sequence *[]string) *Descriptor {
	return Define(counterToken, Definition[*counterState]{
		Version:          "1.0.0",
		EnabledByDefault: enabledByDefault,
		New: func(exec *Context) (*counterState, error) {
			return &counterState{exec: exec, sequence: sequence}, nil
		},
		Pre: func(s *counterState) error {
			phase, _ := s.exec.Phase("counter")
			s.preSeen = phase
			s.pre++
			if s.sequence != nil {
				*s.sequence = append(*s.sequence, "counter.pre")
			}
			return nil
		},
		Post: func(s *counterState) error {
			s.post++
			if s.sequence != nil {
				*s.sequence = append(*s.sequence, "counter.post")
			}
			return nil
		},
	})
}

func otherDescriptor(enabledByDefault bool) *Descriptor {
	return Define(otherToken, Definition[*otherState]{
		Version:          "0.1.0",
		EnabledByDefault: enabledByDefault,
		New: func(*Context) (*otherState, error) {
			return &otherState{}, nil
		},
	})
}

func failingDescriptor(name string) *Descriptor {
	return Define(NewToken[*otherState](name), Definition[*otherState]{
		Version:          "1.0.0",
		EnabledByDefault: true,
		New: func(*Context) (*otherState, error) {
			return nil, errors.New("boom")
		},
	})
}
