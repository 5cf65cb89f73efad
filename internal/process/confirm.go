package process

import "strings"

// State is a step of the prompt negotiation with a running tool.
type State int

const (
	StateRunning        State = iota // Tool running, no unanswered prompt.
	StatePromptDetected              // A known prompt appeared in the output.
	StateConfirmed                   // The prompt was answered on stdin.
	StateDone                        // Success marker seen, or clean exit.
	StateTimedOut                    // Watchdog killed the tool.
	StateFailed                      // Non-zero exit, missing marker, launch error or prompt limit.
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePromptDetected:
		return "prompt_detected"
	case StateConfirmed:
		return "confirmed"
	case StateDone:
		return "done"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateTimedOut || s == StateFailed
}

// DefaultPrompts are the interactive questions the mask tools ask.
var DefaultPrompts = []string{"Do you wish to continue", "Overwrite?"}

// confirmer tracks which part of the output has been examined for prompts
// and how many answers have been given. It never reads or writes the
// process itself, so its transitions can be tested on plain strings.
type confirmer struct {
	prompts    []string
	success    string
	maxAnswers int

	answers int
	scanned int
	state   State
}

func newConfirmer(prompts []string, success string, maxAnswers int) *confirmer {
	return &confirmer{
		prompts:    prompts,
		success:    success,
		maxAnswers: maxAnswers,
		state:      StateRunning,
	}
}

// observe inspects the full output captured so far. It reports true when an
// unanswered prompt was found and the caller should write the answer and
// then call confirmed. A success marker anywhere in the output ends the
// negotiation, even with prompts still pending.
func (c *confirmer) observe(out string) bool {
	if c.state.Terminal() {
		return false
	}
	if c.success != "" && strings.Contains(out, c.success) {
		c.state = StateDone
		return false
	}
	if c.scanned > len(out) {
		c.scanned = len(out)
	}

	idx, width := c.nextPrompt(out[c.scanned:])
	if idx < 0 {
		return false
	}
	c.state = StatePromptDetected
	if c.answers >= c.maxAnswers {
		c.state = StateFailed
		return false
	}
	c.scanned += idx + width
	return true
}

// confirmed records that the answer for the last detected prompt was written.
func (c *confirmer) confirmed() {
	c.answers++
	c.state = StateConfirmed
}

// nextPrompt finds the earliest known prompt in s.
func (c *confirmer) nextPrompt(s string) (int, int) {
	best, width := -1, 0
	for _, p := range c.prompts {
		if i := strings.Index(s, p); i >= 0 && (best < 0 || i < best) {
			best, width = i, len(p)
		}
	}
	return best, width
}
