package presenter

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-enrollment/pkg/rules"
)

// Palette holds the colors used by the terminal presenter.
type Palette struct {
	Info    lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
}

// DefaultPalette is a light-on-dark palette.
func DefaultPalette() Palette {
	return Palette{
		Info:    lipgloss.Color("#2196F3"),
		Success: lipgloss.Color("#8BC34A"),
		Error:   lipgloss.Color("#e53935"),
		Muted:   lipgloss.Color("#9e9e9e"),
	}
}

// Terminal writes presentation events as styled lines.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	palette Palette
	labels  map[string]string

	valid   lipgloss.Style
	invalid lipgloss.Style
	muted   lipgloss.Style
	banners map[Severity]lipgloss.Style
}

// TerminalOption configures a Terminal presenter.
type TerminalOption func(*Terminal)

// WithPalette replaces the default colors.
func WithPalette(p Palette) TerminalOption {
	return func(t *Terminal) {
		t.palette = p
	}
}

// WithLabels maps field ids to display labels.
func WithLabels(labels map[string]string) TerminalOption {
	return func(t *Terminal) {
		for id, label := range labels {
			t.labels[id] = label
		}
	}
}

// NewTerminal returns a presenter writing to out.
func NewTerminal(out io.Writer, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		out:     out,
		palette: DefaultPalette(),
		labels:  make(map[string]string),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(t)
	}

	renderer := lipgloss.NewRenderer(out)
	t.valid = renderer.NewStyle().Foreground(t.palette.Success)
	t.invalid = renderer.NewStyle().Foreground(t.palette.Error).Bold(true)
	t.muted = renderer.NewStyle().Foreground(t.palette.Muted).Italic(true)
	banner := renderer.NewStyle().Bold(true).Padding(0, 1).Border(lipgloss.RoundedBorder())
	t.banners = map[Severity]lipgloss.Style{
		SeverityInfo:    banner.BorderForeground(t.palette.Info).Foreground(t.palette.Info),
		SeveritySuccess: banner.BorderForeground(t.palette.Success).Foreground(t.palette.Success),
		SeverityError:   banner.BorderForeground(t.palette.Error).Foreground(t.palette.Error),
	}
	return t
}

func (t *Terminal) Field(result rules.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch result.Status {
	case rules.StatusInvalid:
		fmt.Fprintln(t.out, t.invalid.Render("✗ "+result.Message))
	case rules.StatusValid:
		fmt.Fprintln(t.out, t.valid.Render("✓ "+t.label(result.FieldID)))
	}
}

// ClearField is a no-op: printed lines cannot be taken back.
func (t *Terminal) ClearField(string) {}

func (t *Terminal) ClearAll() {}

func (t *Terminal) Banner(severity Severity, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	style, ok := t.banners[severity]
	if !ok {
		style = t.banners[SeverityInfo]
	}
	fmt.Fprintln(t.out, style.Render(message))
}

func (t *Terminal) Busy(busy bool) {
	if !busy {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.muted.Render("Submitting..."))
}

func (t *Terminal) Focus(id string) {
	if id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.muted.Render("→ "+t.label(id)))
}

func (t *Terminal) label(id string) string {
	if label, ok := t.labels[id]; ok && label != "" {
		return label
	}
	return id
}
