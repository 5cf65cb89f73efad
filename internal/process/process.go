// Package process runs a legacy interactive command-line tool as a child
// process. It captures output, answers known confirmation prompts, enforces
// a wall-clock timeout by killing the whole process group and checks for a
// success marker before calling a run successful.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultTimeout bounds a single tool run.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxAnswers bounds how many prompts are answered per run.
	DefaultMaxAnswers = 8
	// DefaultAnswer is written in reply to a confirmation prompt.
	DefaultAnswer = "y"
	// DefaultIdle is how long auto-confirm waits on silent output before
	// closing stdin.
	DefaultIdle = 2 * time.Second
)

// Request describes one tool invocation.
type Request struct {
	Path string
	Args []string
	// Dir is the working directory the tool reads and writes files in.
	Dir string
	// Stdin is written to the tool before any prompt is answered.
	Stdin string
	// AutoConfirm answers known prompts; otherwise stdin is closed at start.
	AutoConfirm bool
	Answer      string
	Prompts     []string
	MaxAnswers  int
	// Idle closes stdin once auto-confirm has seen no output for this long
	// and no known prompt is pending. A tool waiting on an unknown question
	// then reads EOF instead of running into the timeout.
	Idle time.Duration
	// SuccessMarker must appear in the output for a run to succeed. Empty
	// means a clean exit is enough.
	SuccessMarker string
	Timeout       time.Duration
}

func (r Request) withDefaults() Request {
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	if r.Answer == "" {
		r.Answer = DefaultAnswer
	}
	if r.MaxAnswers <= 0 {
		r.MaxAnswers = DefaultMaxAnswers
	}
	if r.Idle <= 0 {
		r.Idle = DefaultIdle
	}
	if len(r.Prompts) == 0 {
		r.Prompts = DefaultPrompts
	}
	return r
}

// CommandLine returns the request as a printable command line.
func (r Request) CommandLine() string {
	if len(r.Args) == 0 {
		return r.Path
	}
	return r.Path + " " + strings.Join(r.Args, " ")
}

// Result is the outcome of a run. Output is stdout on success and stdout
// followed by stderr otherwise.
type Result struct {
	OK       bool
	State    State
	Output   string
	Answers  int
	ExitCode int
	Duration time.Duration
}

// Session runs tools. The zero value is usable.
type Session struct {
	Verbose bool
	// Env is appended to the current environment for every run.
	Env []string
	// Log receives verbose lines; it defaults to os.Stderr.
	Log io.Writer
	// OnStart, when set, replaces the verbose line written to Log.
	OnStart func(tool, cmdline string)
}

func (s *Session) log() io.Writer {
	if s.Log != nil {
		return s.Log
	}
	return os.Stderr
}

// Validate checks that the tool binary can be found.
func (s *Session) Validate(path string) error {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return fmt.Errorf("tool not found at %q: %w", path, err)
	}
	if s.Verbose {
		fmt.Fprintf(s.log(), "[%s] found: %s\n", filepath.Base(path), resolved)
	}
	return nil
}

// Run starts the tool and blocks until it exits or is killed. A non-nil
// error is always an *Error; the Result is filled in either way.
func (s *Session) Run(ctx context.Context, req Request) (Result, error) {
	req = req.withDefaults()
	start := time.Now()
	name := filepath.Base(req.Path)

	cmd := exec.Command(req.Path, req.Args...)
	cmd.Dir = req.Dir
	cmd.SysProcAttr = sessionAttr()
	cmd.Env = append(os.Environ(), s.Env...)

	fail := func(err error) (Result, error) {
		return Result{State: StateFailed, Output: err.Error(), Duration: time.Since(start)},
			&Error{Kind: KindLaunch, Command: req.CommandLine(), Err: err}
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fail(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fail(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fail(err)
	}

	if s.Verbose {
		if s.OnStart != nil {
			s.OnStart(name, req.CommandLine())
		} else {
			fmt.Fprintf(s.log(), "[%s] running: %s\n", name, req.CommandLine())
		}
	}
	if err := cmd.Start(); err != nil {
		return fail(err)
	}

	out := newCapture()
	readersDone := out.drain(stdout, stderr)
	wd := startWatchdog(ctx, cmd.Process, req.Timeout)

	stdinOpen := true
	closeStdin := func() {
		if stdinOpen {
			_ = stdin.Close()
			stdinOpen = false
		}
	}
	if req.Stdin != "" {
		if _, err := io.WriteString(stdin, req.Stdin); err != nil {
			closeStdin()
		}
	}

	var (
		conf  *confirmer
		idle  *time.Timer
		idleC <-chan time.Time
		quiet bool
	)
	if req.AutoConfirm {
		conf = newConfirmer(req.Prompts, req.SuccessMarker, req.MaxAnswers)
		idle = time.NewTimer(req.Idle)
		defer idle.Stop()
		idleC = idle.C
	} else {
		closeStdin()
	}

	for running := true; running; {
		select {
		case <-out.notify:
			if idleC != nil {
				idle.Reset(req.Idle)
			}
		case <-readersDone:
			running = false
		case <-idleC:
			quiet = true
		}
		if conf == nil || !stdinOpen {
			continue
		}
		text := out.combinedString()
		answered := false
		for conf.observe(text) {
			if _, err := io.WriteString(stdin, req.Answer+"\n"); err != nil {
				break
			}
			conf.confirmed()
			answered = true
			if s.Verbose {
				fmt.Fprintf(s.log(), "[%s] answered prompt %d with %q\n", name, conf.answers, req.Answer)
			}
		}
		if quiet {
			quiet = false
			if answered {
				idle.Reset(req.Idle)
			} else if !conf.state.Terminal() {
				// Silent with no known prompt left: the tool reads EOF.
				if s.Verbose {
					fmt.Fprintf(s.log(), "[%s] no output for %s, closing stdin\n", name, req.Idle)
				}
				closeStdin()
			}
		}
		switch conf.state {
		case StateDone:
			closeStdin()
		case StateFailed:
			closeStdin()
			wd.abort()
		}
	}
	closeStdin()

	waitErr := cmd.Wait()
	killed := wd.stop()

	res := Result{
		Duration: time.Since(start),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if conf != nil {
		res.Answers = conf.answers
	}

	failure := func(state State, kind Kind, err error) (Result, error) {
		res.State = state
		res.Output = out.failureOutput()
		return res, &Error{
			Kind:     kind,
			Command:  req.CommandLine(),
			ExitCode: res.ExitCode,
			Output:   res.Output,
			Err:      err,
		}
	}

	switch {
	case conf != nil && conf.state == StateFailed:
		return failure(StateFailed, KindPromptLimit, fmt.Errorf("more than %d prompts", req.MaxAnswers))
	case killed == causeTimeout && waitErr != nil:
		return failure(StateTimedOut, KindTimeout, fmt.Errorf("no exit after %s", req.Timeout))
	case killed == causeCanceled && waitErr != nil:
		return failure(StateFailed, KindCanceled, ctx.Err())
	case waitErr != nil:
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return failure(StateFailed, KindLaunch, waitErr)
		}
		return failure(StateFailed, KindExit, nil)
	case req.SuccessMarker != "" && !strings.Contains(out.combinedString(), req.SuccessMarker):
		return failure(StateFailed, KindMarkerMissing, nil)
	}

	res.OK = true
	res.State = StateDone
	res.Output = out.stdoutString()
	return res, nil
}

// capture accumulates both output streams and an interleaved copy used for
// prompt detection. Every write signals notify without blocking.
type capture struct {
	mu       sync.Mutex
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	combined bytes.Buffer
	notify   chan struct{}
}

func newCapture() *capture {
	return &capture{notify: make(chan struct{}, 1)}
}

// drain copies both pipes until EOF. The returned channel closes once both
// readers finish, which must happen before cmd.Wait is called.
func (c *capture) drain(stdout, stderr io.Reader) <-chan struct{} {
	var wg sync.WaitGroup
	wg.Add(2)
	go c.read(&wg, stdout, &c.stdout)
	go c.read(&wg, stderr, &c.stderr)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (c *capture) read(wg *sync.WaitGroup, r io.Reader, dst *bytes.Buffer) {
	defer wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.mu.Lock()
			dst.Write(buf[:n])
			c.combined.Write(buf[:n])
			c.mu.Unlock()
			select {
			case c.notify <- struct{}{}:
			default:
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *capture) combinedString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.combined.String()
}

func (c *capture) stdoutString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stdout.String()
}

func (c *capture) failureOutput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stdout.String() + c.stderr.String()
}
