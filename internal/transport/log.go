package transport

import (
	"context"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/dorcha-inc/vigil/internal/report"
)

// LogFactory writes every report as JSON to a writer and logs a summary line.
// It never signs uploads.
type LogFactory struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLogFactory creates a LogFactory writing to w (stdout when nil)
func NewLogFactory(w io.Writer) *LogFactory {
	if w == nil {
		w = os.Stdout
	}
	return &LogFactory{w: w}
}

func (f *LogFactory) Connect(ctx context.Context) (Connection, error) {
	return f, nil
}

func (f *LogFactory) Signer(extension string) Signer {
	return nil
}

func (f *LogFactory) Send(ctx context.Context, rep *report.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := rep.Encode(f.w); err != nil {
		return err
	}

	zap.L().Debug("Report written",
		zap.String("invocation_id", rep.InvocationID),
		zap.Int("custom_metrics", len(rep.CustomMetrics)),
		zap.Int("performance_entries", len(rep.PerformanceEntries)))
	return nil
}

func (f *LogFactory) Close() error {
	return nil
}

// Interface guards
var (
	_ ConnectionFactory = &LogFactory{}
	_ Connection        = &LogFactory{}
)
