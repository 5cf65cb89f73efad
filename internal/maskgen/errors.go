package maskgen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for generation requests.
var (
	// ErrMaskExists indicates the requested mask name is already taken in the project.
	ErrMaskExists = errors.New("mask already exists")
	// ErrNoObjects indicates the setup selects no object that can be written to an object file.
	ErrNoObjects = errors.New("no eligible objects selected")
	// ErrNoProgress indicates an iteration placed none of its remaining targets.
	ErrNoProgress = errors.New("iteration placed no remaining targets")
	// ErrIterationLimit indicates iterate-until-complete hit its mask bound.
	ErrIterationLimit = errors.New("iteration limit reached with objects still excluded")
)

// Category classifies a generation failure.
type Category string

const (
	CategoryValidation  Category = "validation"  // Rejected before any file was written.
	CategoryWorkspace   Category = "workspace"   // Tool directory could not be prepared or cleaned.
	CategoryProcess     Category = "process"     // The external tool failed, timed out or did not start.
	CategoryDecode      Category = "decode"      // A result artifact was malformed.
	CategoryConsistency Category = "consistency" // Results name objects the catalog does not know.
	CategoryStorage     Category = "storage"     // The mask record could not be written.
)

// Failure is the structured error returned for every failed generation or
// cutting run. Lines holds the cleaned tool error block when one exists.
type Failure struct {
	Category Category
	Mask     string
	Lines    []string
	Err      error
}

// Error renders the category, mask and cleaned lines.
func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failure", f.Category)
	if f.Mask != "" {
		fmt.Fprintf(&b, " for mask %s", f.Mask)
	}
	if f.Err != nil {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	for _, l := range f.Lines {
		b.WriteString("\n  ")
		b.WriteString(l)
	}
	return b.String()
}

// Unwrap returns the cause.
func (f *Failure) Unwrap() error { return f.Err }

// ConsistencyError reports inclusion results that reference an object
// missing from the catalog. The run that produced them is rolled back.
type ConsistencyError struct {
	Mask string
	Err  error
}

// Error names the mask and the unknown object.
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("mask %s: %v", e.Mask, e.Err)
}

// Unwrap returns the decoder error.
func (e *ConsistencyError) Unwrap() error { return e.Err }

func fail(cat Category, mask string, err error, lines ...string) *Failure {
	return &Failure{Category: cat, Mask: mask, Err: err, Lines: lines}
}
