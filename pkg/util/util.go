package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/exprc/pkg/config"
	"golang.org/x/term"
)

// NoPos marks a diagnostic that has no source location.
const NoPos = -1

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is a message attached to a byte offset of the input.
type Diagnostic struct {
	Severity Severity
	Pos      int
	Len      int
	Msg      string
	Flag     string // warning name, shown as [-W<flag>]
}

func (d *Diagnostic) Error() string {
	if d.Pos == NoPos {
		return d.Msg
	}
	return fmt.Sprintf("%d: %s", d.Pos+1, d.Msg)
}

// Errorf returns an error diagnostic at pos spanning length bytes.
func Errorf(pos, length int, format string, args ...any) *Diagnostic {
	return &Diagnostic{Severity: SeverityError, Pos: pos, Len: length, Msg: fmt.Sprintf(format, args...)}
}

const (
	cRed    = "\033[31m"
	cYellow = "\033[33m"
	cGreen  = "\033[32m"
	cNone   = "\033[0m"
)

// Reporter prints diagnostics for a single input. Output is colored only
// when it goes to a terminal.
type Reporter struct {
	name     string
	source   string
	cfg      *config.Config
	out      io.Writer
	color    bool
	warnings int
}

func NewReporter(name, source string, cfg *config.Config, out io.Writer) *Reporter {
	r := &Reporter{name: name, source: source, cfg: cfg, out: out}
	if f, ok := out.(*os.File); ok {
		r.color = term.IsTerminal(int(f.Fd()))
	}
	return r
}

// Warnings returns how many warnings have been printed so far.
func (r *Reporter) Warnings() int { return r.warnings }

func (r *Reporter) paint(color, s string) string {
	if !r.color {
		return s
	}
	return color + s + cNone
}

// Report prints d with the input line and a caret under d.Pos.
func (r *Reporter) Report(d *Diagnostic) {
	label := r.paint(cRed, "error:")
	if d.Severity == SeverityWarning {
		label = r.paint(cYellow, "warning:")
		r.warnings++
	}
	if d.Pos == NoPos {
		fmt.Fprintf(r.out, "%s: %s %s", r.name, label, d.Msg)
	} else {
		fmt.Fprintf(r.out, "%s:1:%d: %s %s", r.name, d.Pos+1, label, d.Msg)
	}
	if d.Flag != "" {
		fmt.Fprintf(r.out, " [-W%s]", d.Flag)
	}
	fmt.Fprintln(r.out)
	if d.Pos != NoPos {
		r.printSourceLine(d)
	}
}

func (r *Reporter) printSourceLine(d *Diagnostic) {
	line := strings.NewReplacer("\n", " ", "\t", " ", "\r", " ", "\v", " ", "\f", " ").Replace(r.source)
	fmt.Fprintf(r.out, "  %s\n", line)

	pos := min(d.Pos, len(line))
	caret := "^"
	if d.Len > 1 {
		caret += strings.Repeat("~", d.Len-1)
	}
	fmt.Fprintf(r.out, "  %s%s\n", strings.Repeat(" ", pos), r.paint(cGreen, caret))
}

// Error prints err. Positioned diagnostics get the source line; anything else
// is printed as a plain error message.
func (r *Reporter) Error(err error) {
	var d *Diagnostic
	if errors.As(err, &d) {
		r.Report(d)
		return
	}
	r.Report(&Diagnostic{Severity: SeverityError, Pos: NoPos, Msg: err.Error()})
}

// Warn prints a warning at pos if wt is enabled.
func (r *Reporter) Warn(wt config.Warning, pos, length int, format string, args ...any) {
	if r == nil || !r.cfg.IsWarningEnabled(wt) {
		return
	}
	r.Report(&Diagnostic{
		Severity: SeverityWarning,
		Pos:      pos,
		Len:      length,
		Msg:      fmt.Sprintf(format, args...),
		Flag:     r.cfg.Warnings[wt].Name,
	})
}
