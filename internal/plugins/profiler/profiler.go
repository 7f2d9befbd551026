// Package profiler provides the profiler plugin. It samples runtime memory
// and scheduler statistics around the handler and records the deltas as
// custom metrics.
package profiler

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/dorcha-inc/vigil/internal/execution"
)

const (
	Name     = "profiler"
	Version  = "1.2.1"
	Homepage = "https://github.com/dorcha-inc/vigil"

	// UploadExtension is the extension requested from the signer for
	// profile uploads.
	UploadExtension = ".pprof"

	signTimeout = 5 * time.Second
)

// Metric names recorded by the post-hook.
const (
	MetricHeapAllocDelta  = "profiler.heap_alloc_delta"
	MetricTotalAllocDelta = "profiler.total_alloc_delta"
	MetricMallocsDelta    = "profiler.mallocs_delta"
	MetricGCCycles        = "profiler.gc_cycles"
	MetricGoroutines      = "profiler.goroutines"
	MetricUploadURL       = "profiler.upload_url"
)

// Token retrieves the profiler state of the current execution.
var Token = execution.NewToken[*State](Name)

// Sample is one reading of the runtime statistics.
type Sample struct {
	HeapAlloc  uint64
	TotalAlloc uint64
	Mallocs    uint64
	NumGC      uint32
	Goroutines int
}

// Sampler takes a Sample.
type Sampler func() Sample

// RuntimeSample reads the live runtime statistics.
func RuntimeSample() Sample {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Sample{
		HeapAlloc:  m.HeapAlloc,
		TotalAlloc: m.TotalAlloc,
		Mallocs:    m.Mallocs,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}

// State holds the samples taken around one invocation.
type State struct {
	exec    *execution.Context
	sampler Sampler

	before    Sample
	after     Sample
	uploadURL string
}

// Descriptor returns the profiler descriptor using the runtime sampler. The
// profiler is disabled unless the configuration enables it.
func Descriptor() *execution.Descriptor {
	return NewDescriptor(RuntimeSample)
}

// NewDescriptor returns a profiler descriptor that reads samples from sampler.
func NewDescriptor(sampler Sampler) *execution.Descriptor {
	return execution.Define(Token, execution.Definition[*State]{
		Version:          Version,
		Homepage:         Homepage,
		EnabledByDefault: false,
		New: func(exec *execution.Context) (*State, error) {
			if sampler == nil {
				return nil, execution.NewInvalidArgumentError("sampler", "must not be nil")
			}
			return &State{exec: exec, sampler: sampler}, nil
		},
		Pre:  (*State).pre,
		Post: (*State).post,
	})
}

func (s *State) Before() Sample { return s.before }
func (s *State) After() Sample  { return s.after }

// UploadURL returns the signed profile upload URL, empty when no signer was
// available.
func (s *State) UploadURL() string { return s.uploadURL }

func (s *State) pre() error {
	s.before = s.sampler()
	return nil
}

func (s *State) post() error {
	s.after = s.sampler()

	err := s.exec.AddCustomMetrics(
		execution.IntMetric(MetricHeapAllocDelta, delta(s.after.HeapAlloc, s.before.HeapAlloc)),
		execution.IntMetric(MetricTotalAllocDelta, delta(s.after.TotalAlloc, s.before.TotalAlloc)),
		execution.IntMetric(MetricMallocsDelta, delta(s.after.Mallocs, s.before.Mallocs)),
		execution.IntMetric(MetricGCCycles, int64(s.after.NumGC)-int64(s.before.NumGC)),
		execution.IntMetric(MetricGoroutines, int64(s.after.Goroutines)),
	)
	if err != nil {
		return fmt.Errorf("failed to record profile metrics: %w", err)
	}

	signer := s.exec.Signer(UploadExtension)
	if signer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), signTimeout)
	defer cancel()

	url, err := signer.SignedURL(ctx)
	if err != nil {
		return fmt.Errorf("failed to sign profile upload: %w", err)
	}
	s.uploadURL = url
	return s.exec.CustomMetricString(MetricUploadURL, url)
}

// delta returns after-before as a signed value
func delta(after, before uint64) int64 {
	if after >= before {
		return int64(after - before)
	}
	return -int64(before - after)
}
