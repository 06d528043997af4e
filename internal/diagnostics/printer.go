package diagnostics

import (
	"errors"
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Printer writes diagnostics to an error stream, optionally with ANSI colors.
type Printer struct {
	w   io.Writer
	out *termenv.Output // nil when colors are off
}

// NewPrinter returns a printer writing to w. Colors are used only when color
// is true; callers decide that from config and terminal detection.
func NewPrinter(w io.Writer, color bool) *Printer {
	p := &Printer{w: w}
	if color {
		p.out = termenv.NewOutput(w, termenv.WithProfile(termenv.ANSI))
	}
	return p
}

// Print writes err. Diagnostic errors get their structured layout; any other
// error is written as-is on its own line.
func (p *Printer) Print(err error) {
	var d *DiagnosticError
	if !errors.As(err, &d) {
		fmt.Fprintln(p.w, err.Error())
		return
	}

	if d.Phase == PhaseRuntime {
		fmt.Fprintln(p.w, p.style(d.Message, "1", true))
		fmt.Fprintln(p.w, p.style(fmt.Sprintf("[line %d] in script", d.Line), "8", false))
		return
	}

	fmt.Fprintf(p.w, "%s %s%s: %s\n",
		p.style(fmt.Sprintf("[line %d]", d.Line), "8", false),
		p.style("Error", "1", true),
		d.Where(),
		d.Message,
	)
}

// PrintAll writes each diagnostic in order.
func (p *Printer) PrintAll(errs []*DiagnosticError) {
	for _, d := range errs {
		p.Print(d)
	}
}

func (p *Printer) style(s, color string, bold bool) string {
	if p.out == nil {
		return s
	}
	st := p.out.String(s).Foreground(p.out.Color(color))
	if bold {
		st = st.Bold()
	}
	return st.String()
}
