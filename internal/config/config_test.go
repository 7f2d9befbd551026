package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dorcha-inc/vigil/internal/core"
	"github.com/dorcha-inc/vigil/internal/transport"
)

// chdirTemp changes into a fresh temporary directory for the duration of the test.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { core.LogDeferredError(func() error { return os.Chdir(originalDir) }) })
	return tmpDir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("VIGIL_TOKEN", "project-token")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "project-token", cfg.Token)
	assert.Equal(t, DefaultTimeoutWindowMs, cfg.TimeoutWindow)
	assert.Equal(t, DefaultInstallMethod, cfg.InstallMethod)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.NotNil(t, cfg.Plugins)
}

func TestLoad_MissingToken(t *testing.T) {
	chdirTemp(t)
	t.Setenv("VIGIL_TOKEN", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "Token")
}

func TestLoadWithOverrides_WinsOverEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("VIGIL_TOKEN", "env-token")
	t.Setenv("VIGIL_TIMEOUT_WINDOW", "300")

	cfg, err := LoadWithOverrides("", map[string]any{
		"token":          "flag-token",
		"timeout_window": 0,
	})
	require.NoError(t, err)
	assert.Equal(t, "flag-token", cfg.Token)
	assert.Equal(t, 0, cfg.TimeoutWindow)
}

func TestRead_SkipsValidation(t *testing.T) {
	chdirTemp(t)
	t.Setenv("VIGIL_TOKEN", "")
	t.Setenv("VIGIL_PLUGIN_TRACE_ENABLED", "false")

	cfg, err := Read("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Token)
	assert.Error(t, cfg.Validate())

	enabled, ok := cfg.PluginEnabled("trace")
	assert.True(t, ok)
	assert.False(t, enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("VIGIL_TOKEN", "env-token")
	t.Setenv("VIGIL_ENABLED", "false")
	t.Setenv("VIGIL_TIMEOUT_WINDOW", "0")
	t.Setenv("VIGIL_INSTALL_METHOD", "layer")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 0, cfg.TimeoutWindow)
	assert.Equal(t, "layer", cfg.InstallMethod)
}

func TestLoad_NegativeTimeoutWindow(t *testing.T) {
	chdirTemp(t)
	t.Setenv("VIGIL_TOKEN", "token")
	t.Setenv("VIGIL_TIMEOUT_WINDOW", "-5")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TimeoutWindow")
}

func TestLoad_ProjectConfigFile(t *testing.T) {
	tmpDir := chdirTemp(t)
	content := "token: file-token\ntimeout_window: 300\nplugins:\n  profiler: true\n  trace: false\n"
	// #nosec G306 -- test file permissions are acceptable for temporary test files
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ProjectConfigFileName), []byte(content), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.Token)
	assert.Equal(t, 300, cfg.TimeoutWindow)

	enabled, ok := cfg.PluginEnabled("profiler")
	assert.True(t, ok)
	assert.True(t, enabled)

	enabled, ok = cfg.PluginEnabled("trace")
	assert.True(t, ok)
	assert.False(t, enabled)
}

func TestLoad_SpecificPathWithPluginEnvOverride(t *testing.T) {
	chdirTemp(t)
	configPath := filepath.Join(t.TempDir(), "custom.yaml")
	content := "token: custom\nplugins:\n  profiler: false\n"
	// #nosec G306 -- test file permissions are acceptable for temporary test files
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	t.Setenv("VIGIL_PLUGIN_PROFILER_ENABLED", "true")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	enabled, ok := cfg.PluginEnabled("profiler")
	assert.True(t, ok)
	assert.True(t, enabled, "environment overrides win over the config file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestPluginOverridesFromEnv(t *testing.T) {
	overrides, err := pluginOverridesFromEnv([]string{
		"VIGIL_PLUGIN_TRACE_ENABLED=0",
		"VIGIL_PLUGIN_PROFILER_ENABLED=maybe",
		"VIGIL_PLUGIN__ENABLED=true",
		"VIGIL_TOKEN=abc",
		"UNRELATED=1",
	})
	require.Error(t, err, "maybe is not a boolean")
	assert.Nil(t, overrides)

	overrides, err = pluginOverridesFromEnv([]string{
		"VIGIL_PLUGIN_TRACE_ENABLED=0",
		"VIGIL_PLUGIN_PROFILER_ENABLED=true",
		"VIGIL_PLUGIN__ENABLED=true",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"trace": false, "profiler": true}, overrides)
}

func TestValidate_LogFormat(t *testing.T) {
	cfg := Default()
	cfg.Token = "token"
	cfg.LogFormat = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format must be one of: json, pretty")
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := Default()
	cfg.Token = "token"
	cfg.LogLevel = "verbose"
	require.Error(t, cfg.Validate())

	cfg.LogLevel = LogLevelDebug
	require.NoError(t, cfg.Validate())
}

func TestClone_IsIndependent(t *testing.T) {
	cfg := Default()
	cfg.Token = "token"
	cfg.Plugins["trace"] = true
	cfg.ConnectionFactory = transport.NewRecorder()

	clone := cfg.Clone()
	clone.Plugins["trace"] = false
	clone.Token = "other"

	assert.True(t, cfg.Plugins["trace"])
	assert.Equal(t, "token", cfg.Token)
	assert.Same(t, cfg.ConnectionFactory, clone.ConnectionFactory)
}

func TestTimeoutWindowDuration(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "150ms", cfg.TimeoutWindowDuration().String())
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Token = "saved-token"
	cfg.Plugins["profiler"] = true
	cfg.ConnectionFactory = transport.NewRecorder()

	path := filepath.Join(t.TempDir(), "nested", "vigil.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path) // #nosec G304 -- test path
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ConnectionFactory")

	var decoded Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "saved-token", decoded.Token)
	assert.True(t, decoded.Plugins["profiler"])

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-token", loaded.Token)
}
