package execution

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_MatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{NewInvalidArgumentError("metric", "must not be nil"), ErrInvalidArgument},
		{NewTypeMismatchError("input", "string", "int"), ErrTypeMismatch},
		{NewPluginNotFoundError("trace", NotFoundDisabled), ErrPluginNotFound},
		{NewDuplicatePluginError("trace"), ErrDuplicatePlugin},
		{NewInvalidPhaseError("trace", PhasePostRun, PhasePreRun), ErrInvalidPhase},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%T", tc.err), func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.sentinel)
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tc.err), tc.sentinel)
		})
	}
}

func TestPluginNotFoundError_Messages(t *testing.T) {
	unknown := NewPluginNotFoundError("trcae", NotFoundUnknown)
	unknown.Suggestion = "trace"
	assert.Equal(t, `plugin not found: trcae is not registered (did you mean "trace"?)`, unknown.Error())

	assert.Equal(t, "plugin not found: nope is not registered",
		NewPluginNotFoundError("nope", NotFoundUnknown).Error())
	assert.Contains(t, NewPluginNotFoundError("profiler", NotFoundDisabled).Error(), "profiler is disabled")
	assert.Contains(t, NewPluginNotFoundError("trace", NotFoundNoExecution).Error(), "outside of an active execution")

	cause := errors.New("boom")
	failed := NewPluginNotFoundError("trace", NotFoundFailed)
	failed.Cause = cause
	assert.Contains(t, failed.Error(), "failed to initialize: boom")
	assert.ErrorIs(t, failed, cause)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "created", PhaseCreated.String())
	assert.Equal(t, "pre", PhasePreRun.String())
	assert.Equal(t, "post", PhasePostRun.String())
	assert.Equal(t, "finalized", PhaseFinalized.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}
