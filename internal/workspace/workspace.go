// Package workspace serializes access to the external tool's working
// directory and cleans up what a run leaves behind. The tool reads its inputs
// from, and drops its outputs and private scratch files into, one fixed
// directory, so at most one run may use a directory at a time.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidName is returned for file names that are not plain base names.
var ErrInvalidName = errors.New("workspace file name must be a plain base name")

// Manager hands out exclusive Workspaces keyed by directory.
type Manager struct {
	scratch []string

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewManager returns a Manager that removes the named scratch files from a
// workspace on every Release.
func NewManager(scratch []string) *Manager {
	return &Manager{
		scratch: append([]string(nil), scratch...),
		slots:   make(map[string]chan struct{}),
	}
}

func (m *Manager) slot(dir string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[dir]
	if !ok {
		s = make(chan struct{}, 1)
		m.slots[dir] = s
	}
	return s
}

// Acquire blocks until dir is free or ctx ends. The directory is created if
// missing. The caller must Release the returned Workspace.
func (m *Manager) Acquire(ctx context.Context, dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolving %s: %w", dir, err)
	}
	s := m.slot(abs)
	select {
	case s <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("workspace: waiting for %s: %w", abs, ctx.Err())
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		<-s
		return nil, fmt.Errorf("workspace: creating %s: %w", abs, err)
	}
	return &Workspace{
		dir:     abs,
		scratch: m.scratch,
		tracked: make(map[string]bool),
		unlock:  func() { <-s },
	}, nil
}

// Workspace is exclusive use of one tool directory. It is not safe for
// concurrent use; runs inside it are sequential.
type Workspace struct {
	dir     string
	scratch []string
	tracked map[string]bool
	unlock  func()
	once    sync.Once
	err     error
}

// Dir returns the absolute directory path.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the absolute path of name inside the workspace.
func (w *Workspace) Path(name string) string { return filepath.Join(w.dir, name) }

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Write stores data as name and tracks it for removal unless collected.
func (w *Workspace) Write(name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	w.tracked[name] = true
	if err := os.WriteFile(w.Path(name), data, 0o644); err != nil {
		return fmt.Errorf("workspace: writing %s: %w", name, err)
	}
	return nil
}

// Track marks a file the tool is expected to produce so Release removes it
// if it is never collected.
func (w *Workspace) Track(names ...string) {
	for _, n := range names {
		if checkName(n) == nil {
			w.tracked[n] = true
		}
	}
}

// Read returns the contents of name.
func (w *Workspace) Read(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(w.Path(name))
	if err != nil {
		return nil, fmt.Errorf("workspace: reading %s: %w", name, err)
	}
	return data, nil
}

// Open opens name for reading.
func (w *Workspace) Open(name string) (*os.File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(w.Path(name))
	if err != nil {
		return nil, fmt.Errorf("workspace: opening %s: %w", name, err)
	}
	return f, nil
}

// Collect moves name into dstDir and stops tracking it. It returns the new path.
func (w *Workspace) Collect(name, dstDir string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("workspace: creating %s: %w", dstDir, err)
	}
	dst := filepath.Join(dstDir, name)
	if err := move(w.Path(name), dst); err != nil {
		return "", fmt.Errorf("workspace: collecting %s: %w", name, err)
	}
	delete(w.tracked, name)
	return dst, nil
}

// Remove deletes name. Removing a missing file is not an error.
func (w *Workspace) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	delete(w.tracked, name)
	return removeIfExists(w.Path(name))
}

// Release removes scratch files and every tracked file that was not
// collected, then frees the directory for the next run. Calls after the
// first return the first call's result.
func (w *Workspace) Release() error {
	w.once.Do(func() {
		var errs []error
		for _, n := range w.scratch {
			errs = append(errs, removeIfExists(w.Path(n)))
		}
		for n := range w.tracked {
			errs = append(errs, removeIfExists(w.Path(n)))
		}
		w.tracked = map[string]bool{}
		w.unlock()
		w.err = errors.Join(errs...)
	})
	return w.err
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("workspace: removing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// move renames src to dst, copying when they are on different filesystems.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if errors.Is(err, os.ErrNotExist) {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
