package process

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFailed matches every *Error via errors.Is.
var ErrFailed = errors.New("tool run failed")

// Kind classifies why a tool run failed.
type Kind string

const (
	KindLaunch        Kind = "launch"         // The binary could not be started.
	KindExit          Kind = "exit"           // The tool exited non-zero.
	KindTimeout       Kind = "timeout"        // The watchdog killed the tool.
	KindCanceled      Kind = "canceled"       // The caller's context ended the run.
	KindMarkerMissing Kind = "marker_missing" // Clean exit without the success marker.
	KindPromptLimit   Kind = "prompt_limit"   // More prompts than the answer bound.
)

// Error describes a failed tool run. Output holds everything the tool wrote,
// stdout followed by stderr, so the caller can extract its error blocks.
type Error struct {
	Kind     Kind
	Command  string
	ExitCode int
	Output   string
	Err      error
}

// Error returns a one-line summary followed by the tool's output.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: ", e.Command)
	switch e.Kind {
	case KindLaunch:
		b.WriteString("could not start")
	case KindExit:
		fmt.Fprintf(&b, "exited with status %d", e.ExitCode)
	case KindTimeout:
		b.WriteString("timed out and was killed")
	case KindCanceled:
		b.WriteString("canceled")
	case KindMarkerMissing:
		b.WriteString("finished without its success marker")
	case KindPromptLimit:
		b.WriteString("asked too many confirmation prompts")
	default:
		b.WriteString(string(e.Kind))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&b, "\noutput: %s", out)
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFailed.
func (e *Error) Is(target error) bool {
	return target == ErrFailed
}
