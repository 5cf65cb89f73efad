package process

import "testing"

func TestConfirmer_AnswersEachPromptOnce(t *testing.T) {
	t.Parallel()

	c := newConfirmer(DefaultPrompts, "", 8)
	out := "reading objects\nOverwrite? "
	if !c.observe(out) {
		t.Fatal("first prompt not detected")
	}
	if c.state != StatePromptDetected {
		t.Errorf("state = %v, want prompt_detected", c.state)
	}
	c.confirmed()
	if c.observe(out) {
		t.Error("same prompt answered twice")
	}
	if c.state != StateConfirmed {
		t.Errorf("state = %v, want confirmed", c.state)
	}

	out += "y\nDo you wish to continue? "
	if !c.observe(out) {
		t.Fatal("second prompt not detected")
	}
	c.confirmed()
	if c.answers != 2 {
		t.Errorf("answers = %d, want 2", c.answers)
	}
}

func TestConfirmer_PromptSplitAcrossReads(t *testing.T) {
	t.Parallel()

	c := newConfirmer(DefaultPrompts, "", 8)
	if c.observe("Overwr") {
		t.Fatal("partial prompt detected")
	}
	if !c.observe("Overwrite?") {
		t.Fatal("completed prompt not detected")
	}
}

func TestConfirmer_SuccessMarkerEndsNegotiation(t *testing.T) {
	t.Parallel()

	c := newConfirmer(DefaultPrompts, "Writing object file", 8)
	if c.observe("Writing object file with use counts to f.obw\nOverwrite? ") {
		t.Error("prompt answered after success marker")
	}
	if c.state != StateDone {
		t.Errorf("state = %v, want done", c.state)
	}
	if c.observe("Overwrite? Overwrite?") {
		t.Error("terminal confirmer answered again")
	}
}

func TestConfirmer_PromptLimit(t *testing.T) {
	t.Parallel()

	c := newConfirmer(DefaultPrompts, "", 2)
	out := ""
	for i := 0; i < 2; i++ {
		out += "Overwrite? "
		if !c.observe(out) {
			t.Fatalf("prompt %d not detected", i+1)
		}
		c.confirmed()
	}
	out += "Overwrite? "
	if c.observe(out) {
		t.Error("prompt beyond the limit was answered")
	}
	if c.state != StateFailed {
		t.Errorf("state = %v, want failed", c.state)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := map[State]string{
		StateRunning:        "running",
		StatePromptDetected: "prompt_detected",
		StateConfirmed:      "confirmed",
		StateDone:           "done",
		StateTimedOut:       "timed_out",
		StateFailed:         "failed",
		State(99):           "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
