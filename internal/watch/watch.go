// Package watch monitors a drop directory for observation setup files and
// delivers each new or changed setup once its writes have settled.
package watch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papapumpkin/slitforge/internal/setup"
)

// StopFile, when created in the watched directory, asks the consumer to stop.
const StopFile = "STOP"

// DefaultDebounce is how long a file must be quiet before it is delivered.
const DefaultDebounce = 100 * time.Millisecond

// ChangeKind describes the type of file change detected.
type ChangeKind int

const (
	ChangeReady   ChangeKind = iota // Setup file written and parsed.
	ChangeInvalid                   // Setup file present but unparseable.
	ChangeRemoved                   // Setup file deleted.
)

// String returns the lower-case kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeReady:
		return "ready"
	case ChangeInvalid:
		return "invalid"
	case ChangeRemoved:
		return "removed"
	}
	return "unknown"
}

// Change is one settled setup file event.
type Change struct {
	Kind  ChangeKind
	File  string
	Setup setup.Setup // Set for ChangeReady.
	Err   error       // Set for ChangeInvalid.
}

// Watcher monitors a directory for *.toml setup files using fsnotify.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	Changes  <-chan Change   // Read-only external channel
	Stops    <-chan struct{} // Receives when StopFile appears

	changes chan Change
	stops   chan struct{}
	quit    chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New creates a watcher for dir.
func New(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Change, 16)
	stops := make(chan struct{}, 1)
	return &Watcher{
		Dir:      dir,
		Debounce: DefaultDebounce,
		Changes:  ch,
		Stops:    stops,
		changes:  ch,
		stops:    stops,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
	}, nil
}

// Start begins watching the directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel. Changes still pending
// are delivered only while there is room in the channel.
func (w *Watcher) Stop() {
	close(w.quit)
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.Debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				for file := range pending {
					w.emit(file)
				}
				return
			}
			if filepath.Base(event.Name) == StopFile && event.Has(fsnotify.Create) {
				select {
				case w.stops <- struct{}{}:
				default:
				}
				continue
			}
			if !isSetupFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= w.Debounce {
					w.emit(file)
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

// isSetupFile accepts *.toml files, skipping hidden and editor temp files.
func isSetupFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "#") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".toml")
}

func (w *Watcher) emit(file string) {
	c := Change{Kind: ChangeReady, File: file}
	s, err := setup.Load(file)
	switch {
	case err == nil:
		c.Setup = s
	case errors.Is(err, os.ErrNotExist):
		c.Kind = ChangeRemoved
	default:
		c.Kind, c.Err = ChangeInvalid, err
	}
	select {
	case w.changes <- c:
	case <-w.quit:
		select {
		case w.changes <- c:
		default:
		}
	}
}
