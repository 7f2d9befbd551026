package execution

import (
	"slices"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/dorcha-inc/vigil/internal/config"
	"github.com/dorcha-inc/vigil/internal/transport"
)

// Params holds everything needed to create a Context. Config is required.
type Params struct {
	Config       *config.Config
	Service      Service
	Host         HostContext
	Input        any
	ColdStart    bool
	Clock        clockwork.Clock // defaults to the real clock
	InvocationID string          // defaults to the host request id, then a random UUID
	HookReporter HookReporter    // defaults to DefaultHookReporter
}

// instance is one plugin's state inside one execution
type instance struct {
	desc  *Descriptor
	state any
	phase Phase
}

type unavailablePlugin struct {
	reason NotFoundReason
	cause  error
}

// Context is the active Execution of one invocation. Telemetry operations
// are safe to call from several goroutines; snapshots are independent copies.
type Context struct {
	cfg          *config.Config
	service      Service
	host         HostContext
	input        any
	coldStart    bool
	start        time.Time
	clock        clockwork.Clock
	invocationID string
	reporter     HookReporter
	registry     *Registry

	mu           sync.RWMutex
	labels       []string
	labelSet     mapset.Set[string] // guarded by mu
	metrics      []CustomMetric
	entries      []PerformanceEntry
	hookFailures []HookFailure
	finalized    bool

	// plugin bookkeeping is written during Instantiate, before the context
	// is shared
	plugins     []*instance
	byName      map[string]*instance
	unavailable map[string]unavailablePlugin
}

// NewContext creates the context for one invocation. Plugins are attached
// afterwards by Registry.Instantiate.
func NewContext(p Params) (*Context, error) {
	if p.Config == nil {
		return nil, NewInvalidArgumentError("config", "must not be nil")
	}

	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	host := p.Host
	if host == nil {
		host = PlaceholderHost()
	}

	invocationID := p.InvocationID
	if invocationID == "" {
		invocationID = host.RequestID()
	}
	if invocationID == "" {
		invocationID = uuid.NewString()
	}

	reporter := p.HookReporter
	if reporter == nil {
		reporter = DefaultHookReporter
	}

	return &Context{
		cfg:          p.Config,
		service:      p.Service,
		host:         host,
		input:        p.Input,
		coldStart:    p.ColdStart,
		start:        clock.Now(),
		clock:        clock,
		invocationID: invocationID,
		reporter:     reporter,
		labelSet:     mapset.NewThreadUnsafeSet[string](),
		byName:       make(map[string]*instance),
		unavailable:  make(map[string]unavailablePlugin),
	}, nil
}

func (c *Context) Active() bool         { return true }
func (c *Context) InvocationID() string { return c.invocationID }

// AddPerformanceEntry appends entry as given.
func (c *Context) AddPerformanceEntry(entry *PerformanceEntry) error {
	if entry == nil {
		return NewInvalidArgumentError("performance entry", "must not be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropIfFinalizedLocked("performance entry") {
		return nil
	}
	c.entries = append(c.entries, *entry)
	return nil
}

// AddCustomMetric validates and appends metric.
func (c *Context) AddCustomMetric(metric *CustomMetric) error {
	if err := validateMetric(metric); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropIfFinalizedLocked("custom metric") {
		return nil
	}
	c.metrics = append(c.metrics, *metric)
	return nil
}

func (c *Context) CustomMetricString(name, value string) error {
	return c.AddCustomMetric(StringMetric(name, value))
}

func (c *Context) CustomMetricInt(name string, value int64) error {
	return c.AddCustomMetric(IntMetric(name, value))
}

// AddCustomMetrics adds every non-nil metric in order and stops at the first
// invalid one.
func (c *Context) AddCustomMetrics(metrics ...*CustomMetric) error {
	for _, m := range metrics {
		if m == nil {
			continue
		}
		if err := c.AddCustomMetric(m); err != nil {
			return err
		}
	}
	return nil
}

// Label adds text once; repeated labels are collapsed.
func (c *Context) Label(text string) error {
	if err := validateName("label", text); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropIfFinalizedLocked("label") {
		return nil
	}
	if c.labelSet.Add(text) {
		c.labels = append(c.labels, text)
	}
	return nil
}

// Measure records a measure entry spanning from now until the returned
// func is called.
func (c *Context) Measure(name string) func() error {
	start := c.clock.Now()
	return func() error {
		return c.AddPerformanceEntry(&PerformanceEntry{
			Name:      name,
			EntryType: EntryTypeMeasure,
			StartTime: start,
			Duration:  c.clock.Since(start),
		})
	}
}

func (c *Context) CustomMetrics() []CustomMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.metrics)
}

func (c *Context) PerformanceEntries() []PerformanceEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.entries)
}

func (c *Context) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.labels)
}

// HookFailures returns the hook failures recorded so far.
func (c *Context) HookFailures() []HookFailure {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.hookFailures)
}

func (c *Context) Input() any                { return c.input }
func (c *Context) IsColdStarted() bool       { return c.coldStart }
func (c *Context) StartTimestamp() time.Time { return c.start }
func (c *Context) Clock() clockwork.Clock    { return c.clock }
func (c *Context) Service() Service          { return c.service }
func (c *Context) Config() *config.Config    { return c.cfg }
func (c *Context) Host() HostContext         { return c.host }

func (c *Context) Signer(extension string) transport.Signer {
	if c.cfg.ConnectionFactory == nil {
		return nil
	}
	return c.cfg.ConnectionFactory.Signer(extension)
}

// Plugins returns the descriptors of the plugins attached to this execution,
// in registration order.
func (c *Context) Plugins() []*Descriptor {
	out := make([]*Descriptor, 0, len(c.plugins))
	for _, inst := range c.plugins {
		out = append(out, inst.desc)
	}
	return out
}

// Phase returns the lifecycle phase of the named plugin's state.
func (c *Context) Phase(name string) (Phase, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.byName[name]
	if !ok {
		return PhaseCreated, false
	}
	return inst.phase, true
}

// Finalized reports whether post-hooks have completed.
func (c *Context) Finalized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.finalized
}

func (c *Context) lookupPlugin(name string) (any, error) {
	if inst, ok := c.byName[name]; ok {
		return inst.state, nil
	}

	if u, ok := c.unavailable[name]; ok {
		err := NewPluginNotFoundError(name, u.reason)
		err.Cause = u.cause
		return nil, err
	}

	err := NewPluginNotFoundError(name, NotFoundUnknown)
	if c.registry != nil {
		err.Suggestion = c.registry.Suggest(name)
	}
	return nil, err
}

func (c *Context) bindRegistry(r *Registry) {
	c.registry = r
}

func (c *Context) hasPlugin(name string) bool {
	_, ok := c.byName[name]
	return ok
}

func (c *Context) attach(d *Descriptor, state any) {
	inst := &instance{desc: d, state: state, phase: PhaseCreated}
	c.plugins = append(c.plugins, inst)
	c.byName[d.Name()] = inst
}

func (c *Context) markUnavailable(name string, reason NotFoundReason, cause error) {
	c.unavailable[name] = unavailablePlugin{reason: reason, cause: cause}
}

// dropIfFinalizedLocked reports whether the context is read-only; the
// caller must hold mu.
func (c *Context) dropIfFinalizedLocked(what string) bool {
	if !c.finalized {
		return false
	}
	zap.L().Debug("Dropping write to finalized execution",
		zap.String("invocation_id", c.invocationID),
		zap.String("kind", what))
	return true
}

// Interface guard
var _ Execution = &Context{}
