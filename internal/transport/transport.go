// Package transport declares the collaborators that ship finished reports
// and sign upload URLs. Real network implementations live outside this
// repository; Recorder and LogFactory cover tests and local runs.
package transport

import (
	"context"

	"github.com/dorcha-inc/vigil/internal/report"
)

// DefaultExtension is used when a signer is requested without an extension.
const DefaultExtension = ".bin"

// Connection accepts finished reports.
type Connection interface {
	Send(ctx context.Context, r *report.Report) error
	Close() error
}

// ConnectionFactory opens connections and, optionally, issues signers.
type ConnectionFactory interface {
	Connect(ctx context.Context) (Connection, error)
	// Signer returns nil when the factory cannot sign uploads.
	Signer(extension string) Signer
}

// Signer issues upload URLs for files of one extension.
type Signer interface {
	Extension() string
	SignedURL(ctx context.Context) (string, error)
}

// NormalizeExtension returns ext with a leading dot, or DefaultExtension when empty.
func NormalizeExtension(ext string) string {
	if ext == "" {
		return DefaultExtension
	}
	if ext[0] != '.' {
		return "." + ext
	}
	return ext
}
