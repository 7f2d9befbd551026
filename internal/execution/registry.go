package execution

import (
	"fmt"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/dorcha-inc/vigil/internal/config"
	"github.com/dorcha-inc/vigil/internal/core"
)

// Registry holds every known plugin descriptor. Descriptors are registered
// at startup; lookups are safe from any goroutine.
type Registry struct {
	mu     sync.Mutex // serialises Register so order and byName agree
	order  []*Descriptor
	byName *xsync.MapOf[string, *Descriptor] // the key here is the plugin name
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: xsync.NewMapOf[string, *Descriptor](),
	}
}

// Register adds a descriptor. Names are unique within a registry.
func (r *Registry) Register(d *Descriptor) error {
	if err := validateDescriptor(d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, loaded := r.byName.LoadOrStore(d.Name(), d); loaded {
		return NewDuplicatePluginError(d.Name())
	}
	r.order = append(r.order, d)

	zap.L().Debug("Registered plugin",
		zap.String("plugin", d.Name()),
		zap.String("version", d.Version()),
		zap.Bool("enabled_by_default", d.EnabledByDefault()),
		zap.String("state_type", d.StateType()))
	return nil
}

// Lookup returns the descriptor registered under name
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	return r.byName.Load(name)
}

// Descriptors returns the registered descriptors in registration order
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// IsEnabled resolves the effective state of a plugin: the configuration
// override when present, else the descriptor default. Unknown plugins are
// never enabled.
func (r *Registry) IsEnabled(name string, cfg *config.Config) bool {
	d, ok := r.Lookup(name)
	if !ok {
		return false
	}
	if cfg != nil {
		if enabled, set := cfg.PluginEnabled(name); set {
			return enabled
		}
	}
	return d.EnabledByDefault()
}

// EnabledNames returns the set of plugins enabled under cfg
func (r *Registry) EnabledNames(cfg *config.Config) mapset.Set[string] {
	enabled := mapset.NewThreadUnsafeSet[string]()
	for _, d := range r.Descriptors() {
		if r.IsEnabled(d.Name(), cfg) {
			enabled.Add(d.Name())
		}
	}
	return enabled
}

// Suggest finds the most similar registered name for typo detection using
// Levenshtein distance. Returns "" when nothing is close.
func (r *Registry) Suggest(name string) string {
	var best string
	bestDistance := 3 // Only consider distances <= 2

	nameLower := strings.ToLower(name)
	for _, d := range r.Descriptors() {
		distance := levenshtein.ComputeDistance(nameLower, d.Name())
		if distance < bestDistance {
			bestDistance = distance
			best = d.Name()
		}
	}
	return best
}

// Instantiate creates the execution state of every enabled plugin and
// attaches it to exec, in registration order. A plugin whose factory fails
// is left out; the others still instantiate.
func (r *Registry) Instantiate(cfg *config.Config, exec *Context) {
	exec.bindRegistry(r)

	for _, d := range r.Descriptors() {
		if !r.IsEnabled(d.Name(), cfg) {
			exec.markUnavailable(d.Name(), NotFoundDisabled, nil)
			continue
		}
		if exec.hasPlugin(d.Name()) {
			continue
		}

		state, err := newPluginState(d, exec)
		if err != nil {
			zap.L().Warn("Plugin failed to initialize",
				zap.String("plugin", d.Name()),
				zap.String("invocation_id", exec.InvocationID()),
				zap.Error(err))
			exec.markUnavailable(d.Name(), NotFoundFailed, err)
			continue
		}

		exec.attach(d, state)
	}
}

// newPluginState runs the factory, converting a panic into an error
func newPluginState(d *Descriptor, exec *Context) (state any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			core.LogPanicRecovery("plugin:"+d.Name(), rec)
			err = fmt.Errorf("panic in %s factory: %v", d.Name(), rec)
		}
	}()

	state, err = d.newState(exec)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s state: %w", d.Name(), err)
	}
	if state == nil {
		return nil, fmt.Errorf("plugin %s returned no state", d.Name())
	}
	return state, nil
}
