package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Printer writes user-facing fatal errors and warnings, e.g. to stderr.
// Messages are colored only when the destination is a terminal.
type Printer struct {
	w      io.Writer
	red    *color.Color
	yellow *color.Color
	exit   func(code int)
}

// PrinterOption configures a Printer
type PrinterOption func(*Printer)

// WithColor forces color on or off regardless of the destination
func WithColor(enabled bool) PrinterOption {
	return func(p *Printer) {
		p.setColor(enabled)
	}
}

// WithExit replaces os.Exit as the function Fatalf calls
func WithExit(exit func(code int)) PrinterOption {
	return func(p *Printer) {
		p.exit = exit
	}
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{
		w:      w,
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		exit:   os.Exit,
	}
	p.setColor(IsTerminal(w))
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) setColor(enabled bool) {
	for _, c := range []*color.Color{p.red, p.yellow} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// Fatalf prints the message prefixed with "fatal: " in red and exits with code
func (p *Printer) Fatalf(code int, format string, args ...any) {
	p.red.Fprint(p.w, "fatal: "+terminate(fmt.Sprintf(format, args...)))
	p.exit(code)
}

// Warnf prints a yellow warning. No "warning" prefix is added.
func (p *Printer) Warnf(format string, args ...any) {
	p.Warn(fmt.Sprintf(format, args...))
}

// Warn prints msg in yellow
func (p *Printer) Warn(msg string) {
	p.yellow.Fprint(p.w, terminate(msg))
}

// terminate appends a newline unless msg already ends with one
func terminate(msg string) string {
	if strings.HasSuffix(msg, "\n") {
		return msg
	}
	return msg + "\n"
}
