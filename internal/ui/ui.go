// Package ui renders progress and results for the terminal. Progress goes
// to stderr through a Printer; listings are written as tables to stdout.
package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/slitforge/internal/mask"
	"github.com/papapumpkin/slitforge/internal/maskgen"
	"github.com/papapumpkin/slitforge/internal/rotator"
)

type styles struct {
	bold    lipgloss.Style
	dim     lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	accent  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		bold:    r.NewStyle().Bold(true),
		dim:     r.NewStyle().Faint(true),
		info:    r.NewStyle().Foreground(lipgloss.Color("6")),
		success: r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		err:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		accent:  r.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
	}
}

// Printer writes styled progress lines. It satisfies maskgen.Notifier.
type Printer struct {
	w  io.Writer
	st styles
}

// New returns a Printer on stderr.
func New() *Printer {
	return NewWriter(os.Stderr)
}

// NewWriter returns a Printer on w. Colors follow w's terminal capabilities.
func NewWriter(w io.Writer) *Printer {
	return &Printer{w: w, st: newStyles(lipgloss.NewRenderer(w))}
}

// Writer returns the destination, for components that log verbatim lines.
func (p *Printer) Writer() io.Writer { return p.w }

// Info prints a dim informational line.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, p.st.dim.Render(msg))
}

// Success prints a green check line.
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.w, p.st.success.Render("✓ ")+msg)
}

// Warn prints a yellow warning line.
func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.w, p.st.warn.Render("⚠ warning: ")+msg)
}

// Error prints an error line. Generation failures show their category and
// the cleaned tool error block, one line each.
func (p *Printer) Error(err error) {
	var f *maskgen.Failure
	if !errors.As(err, &f) {
		fmt.Fprintln(p.w, p.st.err.Render("error: ")+err.Error())
		return
	}
	head := fmt.Sprintf("%s failure", f.Category)
	if f.Mask != "" {
		head += " for " + f.Mask
	}
	if f.Err != nil {
		head += ": " + f.Err.Error()
	}
	fmt.Fprintln(p.w, p.st.err.Render("✗ ")+head)
	for _, l := range f.Lines {
		fmt.Fprintln(p.w, "  "+p.st.err.Render("•")+" "+l)
	}
}

// ToolRun prints the command line of an external tool invocation.
func (p *Printer) ToolRun(tool, cmdline string) {
	fmt.Fprintln(p.w, p.st.info.Render("["+tool+"]")+" running: "+cmdline)
}

// MaskCreated prints a summary of a newly generated mask.
func (p *Printer) MaskCreated(m mask.Mask) {
	slits, holes := m.Counts()
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.st.success.Render("◆ mask"),
		p.st.bold.Render(m.Name),
		p.st.dim.Render(fmt.Sprintf("%d slits, %d holes · %d included, %d excluded",
			slits, holes, len(m.Included), len(m.Excluded))))
}

// Transition prints a lifecycle change.
func (p *Printer) Transition(m mask.Mask) {
	fmt.Fprintf(p.w, "%s %s is now %s\n", p.st.accent.Render("◆"), m.Name, p.st.bold.Render(string(m.Status)))
}

// RotatorResult prints the outcome of a rotator check.
func (p *Printer) RotatorResult(name string, err error) {
	if err == nil {
		p.Success(fmt.Sprintf("%s: rotator configuration accepted", name))
		return
	}
	var ve *rotator.ValidationError
	if errors.As(err, &ve) && ve.Level == rotator.LevelWarning {
		fmt.Fprintln(p.w, p.st.warn.Render("✗ "+name+": ")+ve.Error())
		return
	}
	fmt.Fprintln(p.w, p.st.err.Render("✗ "+name+": ")+err.Error())
}

// Generated prints the closing line of a generation request.
func (p *Printer) Generated(masks []mask.Mask) {
	names := make([]string, len(masks))
	for i, m := range masks {
		names[i] = m.Name
	}
	switch len(masks) {
	case 0:
		p.Info("no masks generated")
	case 1:
		p.Success("generated " + names[0])
	default:
		p.Success(fmt.Sprintf("generated %d masks: %s", len(masks), strings.Join(names, ", ")))
	}
}
