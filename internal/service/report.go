package service

import (
	"fmt"
	"time"

	"github.com/dorcha-inc/vigil/internal/core"
	"github.com/dorcha-inc/vigil/internal/execution"
	"github.com/dorcha-inc/vigil/internal/report"
)

const agentRuntime = "go"

// outcome is how the handler finished, as far as the report is concerned
type outcome struct {
	err      error
	panicked bool
	panicVal any
	stack    string
	timedOut bool
}

func (o outcome) errorInfo() *report.ErrorInfo {
	switch {
	case o.panicked:
		return &report.ErrorInfo{
			Name:    "panic",
			Message: fmt.Sprint(o.panicVal),
			Stack:   o.stack,
		}
	case o.err != nil:
		return &report.ErrorInfo{
			Name:    fmt.Sprintf("%T", o.err),
			Message: o.err.Error(),
		}
	default:
		return nil
	}
}

// buildReport snapshots exec into its wire shape
func (s *Service) buildReport(exec *execution.Context, duration time.Duration, out outcome) *report.Report {
	cfg := exec.Config()

	rep := &report.Report{
		Token:              cfg.Token,
		InstallMethod:      cfg.InstallMethod,
		InvocationID:       exec.InvocationID(),
		FunctionName:       exec.Host().FunctionName(),
		ColdStart:          exec.IsColdStarted(),
		TimestampMs:        exec.StartTimestamp().UnixMilli(),
		DurationNs:         duration.Nanoseconds(),
		TimedOut:           out.timedOut,
		Error:              out.errorInfo(),
		Labels:             exec.Labels(),
		CustomMetrics:      []report.Metric{},
		PerformanceEntries: []report.PerformanceEntry{},
		Plugins:            []report.Plugin{},
		Agent:              report.Agent{Runtime: agentRuntime, Version: core.AgentVersion},
	}
	if rep.Labels == nil {
		rep.Labels = []string{}
	}

	for _, m := range exec.CustomMetrics() {
		metric := report.Metric{Name: m.Name}
		if v, ok := m.StringValue(); ok {
			metric.S = &v
		}
		if v, ok := m.IntValue(); ok {
			metric.N = &v
		}
		rep.CustomMetrics = append(rep.CustomMetrics, metric)
	}

	for _, e := range exec.PerformanceEntries() {
		rep.PerformanceEntries = append(rep.PerformanceEntries, report.PerformanceEntry{
			Name:       e.Name,
			EntryType:  e.EntryType,
			StartTime:  e.StartTime.UnixMilli(),
			DurationNs: e.Duration.Nanoseconds(),
		})
	}

	enabled := s.registry.EnabledNames(cfg)
	for _, d := range s.registry.Descriptors() {
		rep.Plugins = append(rep.Plugins, report.Plugin{
			Name:     d.Name(),
			Version:  d.Version(),
			Homepage: d.Homepage(),
			Enabled:  enabled.Contains(d.Name()),
		})
	}

	for _, f := range exec.HookFailures() {
		rep.HookFailures = append(rep.HookFailures, report.HookFailure{
			Plugin:  f.Plugin,
			Phase:   f.Phase.String(),
			Message: f.Err.Error(),
		})
	}

	return rep
}
