package term

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/weedrice/whiteboard-cli/internal/ports"
)

// Toaster renders transient user messages as styled lines on a terminal.
// Duration and position exist for the interface contract; a terminal line
// does not expire, so they are only recorded in the debug log.
type Toaster struct {
	out    io.Writer
	log    zerolog.Logger
	styles map[ports.Severity]lipgloss.Style
}

var _ ports.Toaster = (*Toaster)(nil)

func NewToaster(out io.Writer, log zerolog.Logger) *Toaster {
	return &Toaster{
		out: out,
		log: log,
		styles: map[ports.Severity]lipgloss.Style{
			ports.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
			ports.SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			ports.SeverityWarning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
			ports.SeverityError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		},
	}
}

func (t *Toaster) Show(message string, severity ports.Severity, duration time.Duration, position ports.Position) {
	style, ok := t.styles[severity]
	if !ok {
		style = t.styles[ports.SeverityInfo]
	}

	fmt.Fprintln(t.out, style.Render(fmt.Sprintf("[%s] %s", severity, message)))
	t.log.Debug().
		Str("severity", string(severity)).
		Dur("duration", duration).
		Str("position", string(position)).
		Msg("toast shown")
}
