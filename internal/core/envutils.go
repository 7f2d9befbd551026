package core

import "os"

// GetEnv retrieves an environment variable, checking both the standard name
// and a VIGIL-prefixed version. Returns the first non-empty value found.
// This allows environment variables to be set with or without the VIGIL_ prefix.
func GetEnv(key string) string {
	// Check standard environment variable first
	if val := os.Getenv(key); val != "" {
		return val
	}
	// Check VIGIL-prefixed version
	return os.Getenv(EnvPrefix + "_" + key)
}
