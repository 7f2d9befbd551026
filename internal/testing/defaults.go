// Package testing provides shared fixtures for vigil tests.
package testing

import (
	"github.com/dorcha-inc/vigil/internal/config"
	"github.com/dorcha-inc/vigil/internal/transport"
)

// TestToken is the project token used by test configurations.
const TestToken = "test-project-token"

// Config returns a valid configuration with no connection factory.
func Config() *config.Config {
	cfg := config.Default()
	cfg.Token = TestToken
	return cfg
}

// RecordingConfig returns a valid configuration that ships reports to the
// returned recorder.
func RecordingConfig() (*config.Config, *transport.Recorder) {
	recorder := transport.NewRecorder()
	cfg := Config()
	cfg.ConnectionFactory = recorder
	return cfg, recorder
}
