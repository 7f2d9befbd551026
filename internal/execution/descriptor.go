package execution

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"
)

// Metadata is the static identity of a plugin.
type Metadata struct {
	Name             string `json:"name" yaml:"name" validate:"required,lowercase,max=64"`
	Version          string `json:"version" yaml:"version" validate:"required"`
	Homepage         string `json:"homepage,omitempty" yaml:"homepage,omitempty" validate:"omitempty,url"`
	EnabledByDefault bool   `json:"enabled_by_default" yaml:"enabled_by_default"`
}

// Definition describes a plugin whose per-invocation state has type S.
type Definition[S any] struct {
	Version          string
	Homepage         string
	EnabledByDefault bool

	// New creates the state for one invocation. Required.
	New func(exec *Context) (S, error)
	// Pre runs before the monitored handler. Optional.
	Pre func(state S) error
	// Post runs after the monitored handler, even when it failed. Optional.
	Post func(state S) error
}

// Descriptor is the registered, immutable form of a plugin definition.
type Descriptor struct {
	meta      Metadata
	stateType string
	newState  func(exec *Context) (any, error)
	preHook   func(state any) error
	postHook  func(state any) error
}

// Define binds a definition to the plugin named by tok. The returned
// descriptor only ever stores and hands back values of type S.
func Define[S any](tok Token[S], def Definition[S]) *Descriptor {
	d := &Descriptor{
		meta: Metadata{
			Name:             tok.Name(),
			Version:          def.Version,
			Homepage:         def.Homepage,
			EnabledByDefault: def.EnabledByDefault,
		},
		stateType: typeName[S](),
	}

	if def.New != nil {
		d.newState = func(exec *Context) (any, error) {
			return def.New(exec)
		}
	}
	if def.Pre != nil {
		d.preHook = func(state any) error {
			return def.Pre(state.(S))
		}
	}
	if def.Post != nil {
		d.postHook = func(state any) error {
			return def.Post(state.(S))
		}
	}

	return d
}

func (d *Descriptor) Name() string           { return d.meta.Name }
func (d *Descriptor) Version() string        { return d.meta.Version }
func (d *Descriptor) Homepage() string       { return d.meta.Homepage }
func (d *Descriptor) EnabledByDefault() bool { return d.meta.EnabledByDefault }

// Metadata returns a copy of the plugin's static identity.
func (d *Descriptor) Metadata() Metadata { return d.meta }

// StateType returns the Go type name of the plugin's execution state.
func (d *Descriptor) StateType() string { return d.stateType }

func (d *Descriptor) HasPreHook() bool  { return d.preHook != nil }
func (d *Descriptor) HasPostHook() bool { return d.postHook != nil }

var validate = validator.New()

// validateDescriptor checks a descriptor before it enters a registry
func validateDescriptor(d *Descriptor) error {
	if d == nil {
		return NewInvalidArgumentError("descriptor", "must not be nil")
	}
	if err := validate.Struct(d.meta); err != nil {
		return NewInvalidArgumentError("descriptor", fmt.Sprintf("metadata validation failed: %v", err))
	}
	if !semver.IsValid("v" + d.meta.Version) {
		return NewInvalidArgumentError("descriptor", fmt.Sprintf("version %q of plugin %s is not a semantic version", d.meta.Version, d.meta.Name))
	}
	if d.newState == nil {
		return NewInvalidArgumentError("descriptor", fmt.Sprintf("plugin %s has no state factory", d.meta.Name))
	}
	return nil
}
