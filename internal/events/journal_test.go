package events

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestJournal_AppendsLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.jsonl")

	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	ctx := context.Background()
	for _, typ := range []Type{TypeCreated, TypeFinalized} {
		if err := j.Publish(ctx, Event{Type: typ, Project: "ngc300", Mask: "m1"}); err != nil {
			t.Fatalf("Publish(%s): %v", typ, err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening appends instead of truncating.
	j, err = OpenJournal(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = j.Publish(ctx, Event{Type: TypeCompleted, Project: "ngc300", Mask: "m1"})
	_ = j.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var got []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, ev)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[2].Type != TypeCompleted || got[0].At.IsZero() {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestJournal_Concurrent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j, err := OpenJournal(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = j.Publish(context.Background(), Event{Type: TypeCreated, Mask: "m"})
		}()
	}
	wg.Wait()
	_ = j.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 20 {
		t.Errorf("lines = %d, want 20", lines)
	}
}

func TestJournal_Nil(t *testing.T) {
	t.Parallel()
	var j *Journal
	if err := j.Publish(context.Background(), Event{}); err != nil {
		t.Errorf("nil Publish = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("nil Close = %v", err)
	}
}

func TestOpenJournal_BadPath(t *testing.T) {
	t.Parallel()
	if _, err := OpenJournal(filepath.Join(t.TempDir(), "missing", "events.jsonl")); err == nil {
		t.Error("expected error for missing directory")
	}
}

type failing struct{}

func (failing) Publish(context.Context, Event) error { return errors.New("broker down") }

func TestFanout(t *testing.T) {
	t.Parallel()

	var a, b Recorder
	f := Fanout{&a, failing{}, &b}
	err := f.Publish(context.Background(), Event{Type: TypeDeleted})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("every publisher should receive the event: a=%d b=%d", len(a.Events()), len(b.Events()))
	}
}
