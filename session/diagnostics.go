package session

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/pontaoski/kaleigo/errors"
	"github.com/ztrue/tracerr"
)

// Printer writes diagnostics to a terminal, styling the error kind.
type Printer struct {
	w     io.Writer
	trace bool
	kind  lipgloss.Style
}

// NewPrinter returns a Printer writing to w. With trace set, the Go stack
// captured when the error was raised is printed as well.
func NewPrinter(w io.Writer, trace bool) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:     w,
		trace: trace,
		kind:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}

func (p *Printer) Report(kind errors.Kind, err error) {
	fmt.Fprintf(p.w, "%s: %s\n", p.kind.Render(kind.String()), tracerr.Unwrap(err))
	if p.trace {
		if _, ok := err.(tracerr.Error); ok {
			fmt.Fprint(p.w, tracerr.SprintSourceColor(err))
		}
	}
}
