package execution

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorcha-inc/vigil/internal/transport"
)

func TestNewContext_Defaults(t *testing.T) {
	_, err := NewContext(Params{})
	require.ErrorIs(t, err, ErrInvalidArgument)

	exec, err := NewContext(Params{Config: testConfig()})
	require.NoError(t, err)
	assert.True(t, exec.Active())
	assert.NotEmpty(t, exec.InvocationID())
	assert.Equal(t, "unknown", exec.Host().FunctionName())
	assert.False(t, exec.StartTimestamp().IsZero())

	fromHost, err := NewContext(Params{Config: testConfig(), Host: Host{ID: "req-42", Function: "checkout"}})
	require.NoError(t, err)
	assert.Equal(t, "req-42", fromHost.InvocationID())
	assert.Equal(t, "checkout", fromHost.Host().FunctionName())
}

func TestContext_CustomMetrics(t *testing.T) {
	exec, _ := newTestContext(t, testConfig())

	require.NoError(t, exec.CustomMetricString("region", "eu-west-1"))
	require.NoError(t, exec.CustomMetricInt("items", 3))
	require.NoError(t, exec.AddCustomMetric(StringMetric("tier", "gold")))

	metrics := exec.CustomMetrics()
	require.Len(t, metrics, 3)
	assert.Equal(t, "region", metrics[0].Name)
	assert.Equal(t, "items", metrics[1].Name)
	assert.Equal(t, "tier", metrics[2].Name)

	s, ok := metrics[0].StringValue()
	assert.True(t, ok)
	assert.Equal(t, "eu-west-1", s)
	n, ok := metrics[1].IntValue()
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
}

func TestContext_CustomMetricValidation(t *testing.T) {
	exec, _ := newTestContext(t, testConfig())

	atLimit := strings.Repeat("é", NameCodepointLimit)
	require.NoError(t, exec.CustomMetricInt(atLimit, 1))

	overLimit := strings.Repeat("a", NameCodepointLimit+1)
	assert.ErrorIs(t, exec.CustomMetricInt(overLimit, 1), ErrInvalidArgument)
	assert.ErrorIs(t, exec.CustomMetricString("", "x"), ErrInvalidArgument)
	assert.ErrorIs(t, exec.AddCustomMetric(nil), ErrInvalidArgument)
	assert.ErrorIs(t, exec.AddCustomMetric(&CustomMetric{Name: "empty"}), ErrInvalidArgument)

	require.Len(t, exec.CustomMetrics(), 1)
}

func TestContext_AddCustomMetricsSkipsNil(t *testing.T) {
	exec, _ := newTestContext(t, testConfig())

	valid := IntMetric("valid", 7)
	require.NoError(t, exec.AddCustomMetrics(nil, valid, nil))

	metrics := exec.CustomMetrics()
	require.Len(t, metrics, 1)
	assert.Equal(t, *valid, metrics[0])
}

func TestContext_AddCustomMetricsStopsAtFirstInvalid(t *testing.T) {
	exec, _ := newTestContext(t, testConfig())

	err := exec.AddCustomMetrics(IntMetric("a", 1), IntMetric("", 2), IntMetric("c", 3))
	require.ErrorIs(t, err, ErrInvalidArgument)

	metrics := exec.CustomMetrics()
	require.Len(t, metrics, 1)
	assert.Equal(t, "a", metrics[0].Name)
}

func TestContext_Labels(t *testing.T) {
	exec, _ := newTestContext(t, testConfig())

	require.NoError(t, exec.Label("checkout"))
	require.NoError(t, exec.Label("checkout"))
	require.NoError(t, exec.Label("Checkout"))

	assert.Equal(t, []string{"checkout", "Checkout"}, exec.Labels())
	assert.ErrorIs(t, exec.Label(""), ErrInvalidArgument)
	assert.ErrorIs(t, exec.Label(strings.Repeat("x", NameCodepointLimit+1)), ErrInvalidArgument)
}

func TestContext_PerformanceEntries(t *testing.T) {
	exec, clock := newTestContext(t, testConfig())

	assert.ErrorIs(t, exec.AddPerformanceEntry(nil), ErrInvalidArgument)

	start := clock.Now()
	require.NoError(t, exec.AddPerformanceEntry(&PerformanceEntry{
		Name:      "db",
		EntryType: "custom",
		StartTime: start,
		Duration:  -time.Second,
	}))

	stop := exec.Measure("render")
	clock.Advance(25 * time.Millisecond)
	require.NoError(t, stop())

	entries := exec.PerformanceEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, -time.Second, entries[0].Duration)
	assert.Equal(t, "render", entries[1].Name)
	assert.Equal(t, EntryTypeMeasure, entries[1].EntryType)
	assert.Equal(t, start, entries[1].StartTime)
	assert.Equal(t, 25*time.Millisecond, entries[1].Duration)
}

func TestContext_SnapshotsAreIndependent(t *testing.T) {
	exec, clock := newTestContext(t, testConfig())
	require.NoError(t, exec.CustomMetricInt("a", 1))
	require.NoError(t, exec.Label("one"))
	require.NoError(t, exec.AddPerformanceEntry(&PerformanceEntry{Name: "p", StartTime: clock.Now()}))

	metrics := exec.CustomMetrics()
	labels := exec.Labels()
	entries := exec.PerformanceEntries()

	require.NoError(t, exec.CustomMetricInt("b", 2))
	require.NoError(t, exec.Label("two"))
	require.NoError(t, exec.AddPerformanceEntry(&PerformanceEntry{Name: "q", StartTime: clock.Now()}))
	labels[0] = "mutated"

	assert.Len(t, metrics, 1)
	assert.Len(t, entries, 1)
	assert.Equal(t, []string{"mutated"}, labels)
	assert.Equal(t, []string{"one", "two"}, exec.Labels())
}

func TestContext_ConcurrentWritesAndSnapshots(t *testing.T) {
	exec, _ := newTestContext(t, testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = exec.CustomMetricInt("n", int64(j))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = exec.CustomMetrics()
				_ = exec.Labels()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, exec.CustomMetrics(), 400)
}

func TestContext_WritesAfterFinalizeAreDropped(t *testing.T) {
	exec, _ := newTestContext(t, testConfig())
	require.NoError(t, exec.Label("before"))

	exec.Finalize()
	assert.True(t, exec.Finalized())

	require.NoError(t, exec.Label("after"))
	require.NoError(t, exec.CustomMetricInt("after", 1))
	assert.Equal(t, []string{"before"}, exec.Labels())
	assert.Empty(t, exec.CustomMetrics())
}

func TestContext_PluginLookup(t *testing.T) {
	cfg := testConfig()
	cfg.Plugins["other"] = false

	r := NewRegistry()
	require.NoError(t, r.Register(counterDescriptor(true, nil)))
	require.NoError(t, r.Register(otherDescriptor(true)))

	exec, _ := newTestContext(t, cfg)
	r.Instantiate(cfg, exec)

	state, found, err := OptionalPlugin(exec, counterToken)
	require.NoError(t, err)
	require.True(t, found)
	assert.IsType(t, &counterState{}, state)

	_, found, err = OptionalPlugin(exec, otherToken)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = Plugin(exec, otherToken)
	var notFound *PluginNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, NotFoundDisabled, notFound.Reason)

	_, err = Plugin(exec, NewToken[*counterState]("countr"))
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, NotFoundUnknown, notFound.Reason)
	assert.Equal(t, "counter", notFound.Suggestion)

	_, err = Plugin(exec, NewToken[*otherState]("counter"))
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, _, err = OptionalPlugin(exec, NewToken[*otherState]("counter"))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Plugin(exec, Token[*otherState]{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestContext_PluginViewedThroughInterface(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(counterDescriptor(true, nil)))

	exec, _ := newTestContext(t, testConfig())
	r.Instantiate(exec.Config(), exec)

	// any state satisfies the empty interface view
	view, err := Plugin(exec, NewToken[any]("counter"))
	require.NoError(t, err)
	assert.IsType(t, &counterState{}, view)
}

func TestInputAs(t *testing.T) {
	exec, err := NewContext(Params{Config: testConfig(), Input: map[string]string{"k": "v"}})
	require.NoError(t, err)

	in, err := InputAs[map[string]string](exec)
	require.NoError(t, err)
	assert.Equal(t, "v", in["k"])

	_, err = InputAs[string](exec)
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "string", mismatch.Want)
	assert.Equal(t, "map[string]string", mismatch.Got)

	empty, _ := newTestContext(t, testConfig())
	s, err := InputAs[string](empty)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestContext_Signer(t *testing.T) {
	cfg := testConfig()
	exec, _ := newTestContext(t, cfg)
	assert.Nil(t, exec.Signer(".pprof"))

	cfg.ConnectionFactory = transport.NewSigningRecorder("https://upload.example.com/v1")
	signer := exec.Signer("")
	require.NotNil(t, signer)
	assert.Equal(t, transport.DefaultExtension, signer.Extension())

	url, err := signer.SignedURL(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://upload.example.com/v1/"))
	assert.True(t, strings.HasSuffix(url, transport.DefaultExtension))
}
