// Package tui renders vigil's terminal output. Rich output is used only when
// the relevant stream is a terminal; piped output stays plain so it can be
// consumed by scripts.
//
// Environment Variables:
//   - NO_COLOR or VIGIL_NO_COLOR: Disable colors (https://no-color.org/)
//   - TERM=dumb: Disable colors
//   - VIGIL_QUIET: Disable progress output
package tui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/dorcha-inc/vigil/internal/core"
)

var (
	colorGreen = lipgloss.ANSIColor(2)
	colorRed   = lipgloss.ANSIColor(1)
	colorBlue  = lipgloss.ANSIColor(4)
	colorGray  = lipgloss.ANSIColor(8)
)

const defaultWidth = 80

// UI writes progress to stderr and tables or summaries to stdout.
type UI struct {
	stdoutIsTTY  bool
	stderrIsTTY  bool
	enabled      bool
	colorEnabled bool

	// progress is where spinner frames go; os.Stderr unless replaced in tests
	progress io.Writer

	mu      sync.Mutex
	spinner *spinnerState
}

type spinnerState struct {
	started time.Time
	ticker  clockwork.Ticker
	message string
	done    chan struct{}
	stopped chan struct{}
}

var (
	defaultUI    *UI
	spinnerClock clockwork.Clock = clockwork.NewRealClock()

	// stderrRenderer detects colour support on stderr so progress stays
	// coloured when stdout is piped
	stderrRenderer = lipgloss.NewRenderer(os.Stderr)
	successStyle   = lipgloss.NewStyle().Renderer(stderrRenderer).Foreground(colorGreen).Bold(true)
	spinnerStyle   = lipgloss.NewStyle().Renderer(stderrRenderer).Foreground(colorBlue)
)

func init() {
	defaultUI = New()
}

// New creates a UI with terminal detection for the standard streams.
func New() *UI {
	stdoutIsTTY := IsTerminal(os.Stdout)
	stderrIsTTY := IsTerminal(os.Stderr)

	return &UI{
		stdoutIsTTY:  stdoutIsTTY,
		stderrIsTTY:  stderrIsTTY,
		enabled:      stderrIsTTY && !isDisabled(),
		colorEnabled: stdoutIsTTY && !isColorDisabled(),
		progress:     os.Stderr,
	}
}

// IsTerminal checks if a file descriptor is connected to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of stdout, or 80 when it is not a terminal.
func TerminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

func isDisabled() bool {
	if val := os.Getenv("VIGIL_QUIET"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		return true
	}
	return false
}

// isColorDisabled checks NO_COLOR, VIGIL_NO_COLOR and TERM=dumb
func isColorDisabled() bool {
	return core.GetEnv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb"
}

func (u *UI) Enabled() bool      { return u.enabled }
func (u *UI) ColorEnabled() bool { return u.colorEnabled }
func (u *UI) StdoutIsTTY() bool  { return u.stdoutIsTTY }

// Progress shows message next to an animated spinner until ProgressSuccess
// or ProgressFailure is called.
func (u *UI) Progress(message string) {
	if !u.enabled {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.spinner != nil {
		u.stopSpinnerLocked()
	}

	state := &spinnerState{
		started: spinnerClock.Now(),
		message: message,
		ticker:  spinnerClock.NewTicker(spinner.Line.FPS),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	u.spinner = state

	u.printFrame(state)
	go func() {
		defer close(state.stopped)
		for {
			select {
			case <-state.ticker.Chan():
				u.printFrame(state)
			case <-state.done:
				return
			}
		}
	}()
}

func (u *UI) printFrame(state *spinnerState) {
	elapsed := spinnerClock.Since(state.started)
	frame := spinner.Line.Frames[int(elapsed/spinner.Line.FPS)%len(spinner.Line.Frames)]

	if !u.colorEnabled {
		frame = "..."
	} else {
		frame = spinnerStyle.Render(frame)
	}
	_, _ = fmt.Fprintf(u.progress, "\r%s %s", frame, state.message)
}

// stopSpinnerLocked stops the animation and clears its line; u.mu must be held
func (u *UI) stopSpinnerLocked() {
	u.spinner.ticker.Stop()
	close(u.spinner.done)
	<-u.spinner.stopped
	_, _ = fmt.Fprint(u.progress, "\r", ansi.EraseLine(2))
	u.spinner = nil
}

// ProgressSuccess stops the spinner and prints a check mark with message.
func (u *UI) ProgressSuccess(message string) {
	u.finishProgress("✓", successStyle, message)
}

// ProgressFailure stops the spinner and prints a cross with message.
func (u *UI) ProgressFailure(message string) {
	u.finishProgress("✗", successStyle.Foreground(colorRed), message)
}

func (u *UI) finishProgress(symbol string, style lipgloss.Style, message string) {
	if !u.enabled {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.spinner == nil {
		zap.L().Error("Progress finished without a spinner")
		return
	}

	if message == "" {
		message = u.spinner.message
	}
	u.stopSpinnerLocked()

	if u.colorEnabled {
		symbol = style.Render(symbol)
	}
	_, _ = fmt.Fprintf(u.progress, "%s %s\n", symbol, message)
}

// RenderMarkdown renders markdown with glamour when stdout is a colour
// terminal and returns it unchanged otherwise.
func (u *UI) RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		return "", fmt.Errorf("width must be greater than 0")
	}
	if !u.stdoutIsTTY || !u.colorEnabled {
		return content, nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}
	return renderer.Render(content)
}

// Default returns the default UI instance
func Default() *UI {
	return defaultUI
}

// Reset recreates the default UI, picking up environment changes
func Reset() {
	defaultUI = New()
}

// Progress shows a spinner using the default UI
func Progress(message string) {
	defaultUI.Progress(message)
}

// ProgressSuccess finishes the spinner using the default UI
func ProgressSuccess(message string) {
	defaultUI.ProgressSuccess(message)
}

// ProgressFailure finishes the spinner using the default UI
func ProgressFailure(message string) {
	defaultUI.ProgressFailure(message)
}

// RenderMarkdown renders markdown using the default UI
func RenderMarkdown(content string, width int) (string, error) {
	return defaultUI.RenderMarkdown(content, width)
}
