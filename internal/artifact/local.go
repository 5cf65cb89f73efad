// Package artifact owns the files a generated mask keeps: the object file,
// the observation file and the feature file. They live under a local root
// and can additionally be archived to S3.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Local lays out artifacts as <Root>/<project>/<mask>/.
type Local struct {
	Root string
}

// Dir returns the artifact directory of one mask.
func (l Local) Dir(project, mask string) string {
	return filepath.Join(l.Root, project, mask)
}

// Files lists the artifact paths of a mask, sorted. A missing directory
// yields no files.
func (l Local) Files(project, mask string) ([]string, error) {
	entries, err := os.ReadDir(l.Dir(project, mask))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("artifact: listing %s/%s: %w", project, mask, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, filepath.Join(l.Dir(project, mask), e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Release deletes the artifact directory of a mask. Releasing an already
// released mask is a no-op.
func (l Local) Release(project, mask string) error {
	if project == "" || mask == "" {
		return fmt.Errorf("artifact: release needs project and mask names")
	}
	if err := os.RemoveAll(l.Dir(project, mask)); err != nil {
		return fmt.Errorf("artifact: releasing %s/%s: %w", project, mask, err)
	}
	return nil
}

// Stage creates a fresh, run-private directory next to the mask's artifact
// directory. Files collected there become the mask's artifacts only when
// Commit renames the directory into place.
func (l Local) Stage(project, mask string) (string, error) {
	if project == "" || mask == "" {
		return "", fmt.Errorf("artifact: stage needs project and mask names")
	}
	parent := filepath.Join(l.Root, project)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("artifact: creating %s: %w", parent, err)
	}
	dir, err := os.MkdirTemp(parent, "."+mask+".staging-")
	if err != nil {
		return "", fmt.Errorf("artifact: staging %s/%s: %w", project, mask, err)
	}
	return dir, nil
}

// Commit moves a staged directory to the mask's artifact directory. The
// caller must own the mask name; a directory left there without an owner
// is replaced.
func (l Local) Commit(staged, project, mask string) error {
	dst := l.Dir(project, mask)
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("artifact: clearing %s/%s: %w", project, mask, err)
	}
	if err := os.Rename(staged, dst); err != nil {
		return fmt.Errorf("artifact: committing %s/%s: %w", project, mask, err)
	}
	return nil
}

// Discard removes a staged directory that was never committed.
func (l Local) Discard(staged string) error {
	if staged == "" {
		return nil
	}
	if err := os.RemoveAll(staged); err != nil {
		return fmt.Errorf("artifact: discarding %s: %w", filepath.Base(staged), err)
	}
	return nil
}
