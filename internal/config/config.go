// Package config loads the agent configuration from defaults, an optional
// YAML file and VIGIL_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dorcha-inc/vigil/internal/core"
	"github.com/dorcha-inc/vigil/internal/transport"
)

const (
	DefaultTimeoutWindowMs = 150
	DefaultInstallMethod   = "manual"
	ProjectConfigFileName  = "vigil.yaml"

	pluginEnvPrefix = core.EnvPrefix + "_PLUGIN_"
	pluginEnvSuffix = "_ENABLED"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

type LogFormat string

const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

func ValidLogFormats() map[LogFormat]struct{} {
	return map[LogFormat]struct{}{
		LogFormatPretty: {},
		LogFormatJSON:   {},
	}
}

// Config is the immutable agent configuration consumed by every execution.
// Callers must not mutate a Config once it has been handed to a service;
// use Clone to derive a variant.
type Config struct {
	Enabled       bool            `yaml:"enabled" mapstructure:"enabled"`
	Token         string          `yaml:"token" mapstructure:"token" validate:"required"`
	TimeoutWindow int             `yaml:"timeout_window" mapstructure:"timeout_window" validate:"gte=0"` // milliseconds reserved before the host deadline
	InstallMethod string          `yaml:"install_method,omitempty" mapstructure:"install_method"`
	Plugins       map[string]bool `yaml:"plugins,omitempty" mapstructure:"plugins"` // per-plugin enable overrides
	LogFormat     LogFormat       `yaml:"log_format,omitempty" mapstructure:"log_format" validate:"omitempty,oneof=pretty json"`
	LogLevel      LogLevel        `yaml:"log_level,omitempty" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error fatal"`

	// ConnectionFactory ships reports; nil disables reporting.
	ConnectionFactory transport.ConnectionFactory `yaml:"-" mapstructure:"-"`
}

var validate = validator.New()

// Default returns a configuration with every default applied and no token.
func Default() *Config {
	return &Config{
		Enabled:       true,
		TimeoutWindow: DefaultTimeoutWindowMs,
		InstallMethod: DefaultInstallMethod,
		Plugins:       map[string]bool{},
		LogFormat:     LogFormatJSON,
		LogLevel:      LogLevelInfo,
	}
}

// setupViper configures a fresh viper instance with defaults, the config
// file and environment variables. If configPath is empty, ./vigil.yaml is
// used when it exists.
func setupViper(configPath string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)
	v.SetEnvPrefix(core.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return v, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}
	projectPath := filepath.Join(cwd, ProjectConfigFileName)
	if _, statErr := os.Stat(projectPath); statErr == nil {
		v.SetConfigFile(projectPath)
		if readErr := v.ReadInConfig(); readErr != nil {
			zap.L().Debug("Failed to read project config file", zap.String("path", projectPath), zap.Error(readErr))
		}
	}

	return v, nil
}

// setViperDefaults sets default values in viper
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("enabled", true)
	v.SetDefault("token", "")
	v.SetDefault("timeout_window", DefaultTimeoutWindowMs)
	v.SetDefault("install_method", DefaultInstallMethod)
	v.SetDefault("log_format", string(LogFormatJSON))
	v.SetDefault("log_level", string(LogLevelInfo))
}

// Load loads configuration with precedence: environment > config file > defaults.
// Plugin overrides come from the plugins map of the config file and from
// VIGIL_PLUGIN_<NAME>_ENABLED variables, the latter winning.
func Load(configPath string) (*Config, error) {
	return LoadWithOverrides(configPath, nil)
}

// LoadWithOverrides is Load with explicit values, typically command line
// flags, that take precedence over every other source. Keys use the YAML
// names.
func LoadWithOverrides(configPath string, overrides map[string]any) (*Config, error) {
	cfg, err := read(configPath, overrides)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read resolves the configuration like Load but skips validation. It serves
// commands that only inspect the configuration.
func Read(configPath string) (*Config, error) {
	return read(configPath, nil)
}

func read(configPath string, overrides map[string]any) (*Config, error) {
	v, err := setupViper(configPath)
	if err != nil {
		return nil, err
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Plugins == nil {
		cfg.Plugins = map[string]bool{}
	}

	envOverrides, err := pluginOverridesFromEnv(os.Environ())
	if err != nil {
		return nil, err
	}
	maps.Copy(cfg.Plugins, envOverrides)

	return cfg, nil
}

// pluginOverridesFromEnv extracts VIGIL_PLUGIN_<NAME>_ENABLED entries.
// Plugin names are matched in lower case.
func pluginOverridesFromEnv(environ []string) (map[string]bool, error) {
	overrides := map[string]bool{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, pluginEnvPrefix) || !strings.HasSuffix(key, pluginEnvSuffix) {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, pluginEnvPrefix), pluginEnvSuffix)
		if name == "" {
			continue
		}
		enabled, err := cast.ToBoolE(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		overrides[strings.ToLower(name)] = enabled
	}
	return overrides, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 && validationErrs[0].Field() == "LogFormat" {
			return fmt.Errorf("config validation failed: log_format must be one of: %s, got '%s'",
				core.JoinMapKeys(ValidLogFormats()), c.LogFormat)
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// PluginEnabled reports the override for name and whether one is set.
func (c *Config) PluginEnabled(name string) (enabled bool, ok bool) {
	enabled, ok = c.Plugins[strings.ToLower(name)]
	return enabled, ok
}

// TimeoutWindowDuration returns the timeout window as a duration.
func (c *Config) TimeoutWindowDuration() time.Duration {
	return time.Duration(c.TimeoutWindow) * time.Millisecond
}

// Clone returns a deep copy of the configuration. The connection factory is shared.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Plugins = maps.Clone(c.Plugins)
	if clone.Plugins == nil {
		clone.Plugins = map[string]bool{}
	}
	return &clone
}

// YAML renders the configuration as shown by `vigil config show`.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}

	// #nosec G301 -- config directory permissions 0755 are acceptable
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// #nosec G306 -- config file permissions 0600 keep the token private
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
