package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/dorcha-inc/vigil/internal/report"
)

// maxCellWidth bounds table cells such as homepages
const maxCellWidth = 48

// PluginRow is one line of the plugin table.
type PluginRow struct {
	Name             string `json:"name"`
	Version          string `json:"version"`
	Homepage         string `json:"homepage,omitempty"`
	EnabledByDefault bool   `json:"enabled_by_default"`
	Enabled          bool   `json:"enabled"`
	Hooks            string `json:"hooks"`
	StateType        string `json:"state_type"`
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	enabledStyle  = cellStyle.Foreground(colorGreen)
	disabledStyle = cellStyle.Foreground(colorGray)
)

// RenderPluginTable renders rows as a bordered table. Colours are only
// applied when the UI has colour enabled.
func (u *UI) RenderPluginTable(rows []PluginRow) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.Name,
			r.Version,
			yesNo(r.Enabled),
			yesNo(r.EnabledByDefault),
			r.Hooks,
			ansi.Truncate(r.Homepage, maxCellWidth, "…"),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PLUGIN", "VERSION", "ENABLED", "DEFAULT", "HOOKS", "HOMEPAGE").
		Rows(data...)

	if u.colorEnabled {
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 2 && rows[row].Enabled:
				return enabledStyle
			case col == 2:
				return disabledStyle
			default:
				return cellStyle
			}
		})
	} else {
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	}

	return t.Render() + "\n"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ReportMarkdown summarises a report as markdown.
func ReportMarkdown(rep *report.Report) string {
	var b strings.Builder

	status := "ok"
	switch {
	case rep.TimedOut:
		status = "timed out"
	case rep.Error != nil:
		status = "failed"
	}

	fmt.Fprintf(&b, "## Invocation `%s`\n\n", rep.InvocationID)
	fmt.Fprintf(&b, "- **Function:** %s\n", rep.FunctionName)
	fmt.Fprintf(&b, "- **Status:** %s\n", status)
	fmt.Fprintf(&b, "- **Cold start:** %t\n", rep.ColdStart)
	fmt.Fprintf(&b, "- **Duration:** %s\n", time.Duration(rep.DurationNs))
	if rep.Error != nil {
		fmt.Fprintf(&b, "- **Error:** %s: %s\n", rep.Error.Name, rep.Error.Message)
	}
	if len(rep.Labels) > 0 {
		fmt.Fprintf(&b, "- **Labels:** %s\n", strings.Join(rep.Labels, ", "))
	}

	if len(rep.CustomMetrics) > 0 {
		b.WriteString("\n### Metrics\n\n| Name | Value |\n| --- | --- |\n")
		for _, m := range rep.CustomMetrics {
			fmt.Fprintf(&b, "| %s | %s |\n", m.Name, metricValue(m))
		}
	}

	if len(rep.PerformanceEntries) > 0 {
		b.WriteString("\n### Performance\n\n| Name | Type | Duration |\n| --- | --- | --- |\n")
		for _, e := range rep.PerformanceEntries {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", e.Name, e.EntryType, time.Duration(e.DurationNs))
		}
	}

	if len(rep.HookFailures) > 0 {
		b.WriteString("\n### Hook failures\n\n")
		for _, f := range rep.HookFailures {
			fmt.Fprintf(&b, "- %s (%s): %s\n", f.Plugin, f.Phase, f.Message)
		}
	}

	return b.String()
}

func metricValue(m report.Metric) string {
	switch {
	case m.S != nil:
		return *m.S
	case m.N != nil:
		return fmt.Sprintf("%d", *m.N)
	default:
		return ""
	}
}

// RenderReport renders the markdown summary of rep for the terminal.
func (u *UI) RenderReport(rep *report.Report, width int) (string, error) {
	return u.RenderMarkdown(ReportMarkdown(rep), width)
}
