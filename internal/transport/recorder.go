package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/dorcha-inc/vigil/internal/report"
)

// Recorder is an in-memory ConnectionFactory and Connection. It keeps every
// report it receives and can optionally sign uploads against a base URL.
type Recorder struct {
	mu      sync.Mutex
	reports []*report.Report
	sendErr error
	signURL string
	closed  int
}

// NewRecorder creates a Recorder without signing support
func NewRecorder() *Recorder {
	return &Recorder{}
}

// NewSigningRecorder creates a Recorder whose signers hand out URLs below baseURL
func NewSigningRecorder(baseURL string) *Recorder {
	return &Recorder{signURL: baseURL}
}

// FailWith makes every subsequent Send return err (nil restores success).
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendErr = err
}

// Connect returns the recorder itself.
func (r *Recorder) Connect(ctx context.Context) (Connection, error) {
	return r, nil
}

// Signer returns a signer for ext, or nil when the recorder has no base URL.
func (r *Recorder) Signer(extension string) Signer {
	if r.signURL == "" {
		return nil
	}
	return &recorderSigner{base: r.signURL, extension: NormalizeExtension(extension)}
}

// Send stores the report.
func (r *Recorder) Send(ctx context.Context, rep *report.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	r.reports = append(r.reports, rep)
	return nil
}

// Close counts closes so tests can assert the connection lifecycle.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

// Reports returns a copy of the received reports in arrival order.
func (r *Recorder) Reports() []*report.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*report.Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Closed returns how many times Close was called.
func (r *Recorder) Closed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type recorderSigner struct {
	base      string
	extension string
}

func (s *recorderSigner) Extension() string {
	return s.extension
}

func (s *recorderSigner) SignedURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u, err := url.JoinPath(s.base, uuid.NewString()+s.extension)
	if err != nil {
		return "", fmt.Errorf("failed to build signed url: %w", err)
	}
	return u, nil
}

// Interface guards
var (
	_ ConnectionFactory = &Recorder{}
	_ Connection        = &Recorder{}
	_ Signer            = &recorderSigner{}
)
