package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"report-generator/internal/form"
	"report-generator/internal/logger"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func messageStyle(level form.MessageLevel) lipgloss.Style {
	switch level {
	case form.LevelSuccess:
		return successStyle
	case form.LevelError:
		return errorStyle
	case form.LevelWarning:
		return warningStyle
	default:
		return infoStyle
	}
}

func messageIcon(level form.MessageLevel) string {
	switch level {
	case form.LevelSuccess:
		return "✓"
	case form.LevelError:
		return "✗"
	case form.LevelWarning:
		return "!"
	default:
		return "ℹ"
	}
}

// TerminalView renders controller output as styled lines. Messages are
// printed once; a terminal has nothing to remove after the TTL.
type TerminalView struct {
	out   io.Writer
	mu    sync.Mutex
	state form.State
}

// NewTerminalView creates a view writing to out
func NewTerminalView(out io.Writer) *TerminalView {
	return &TerminalView{out: out}
}

func (v *TerminalView) Render(s form.State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = s
}

func (v *TerminalView) ShowMessage(m form.Message) {
	line := messageStyle(m.Level).Render(messageIcon(m.Level) + " " + m.Text)
	fmt.Fprintln(v.out, line)
}

func (v *TerminalView) SetLoading(on bool) {
	logger.Debug("Loading indicator", "on", on)
}

// State returns the last rendered state
func (v *TerminalView) State() form.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// StepHeader formats the "Step n of 3" banner
func StepHeader(s form.State) string {
	return stepStyle.Render(fmt.Sprintf("Step %d of 3: %s", int(s.Step), s.Step))
}
