// Package mask defines the Mask record produced by a successful generation
// run and the rules for moving it through its lifecycle.
package mask

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papapumpkin/slitforge/internal/result"
	"github.com/papapumpkin/slitforge/internal/setup"
)

// ErrInvalidTransition is wrapped by every rejected status change.
var ErrInvalidTransition = errors.New("invalid mask status transition")

// Status is a mask's lifecycle position.
type Status string

const (
	StatusDraft     Status = "draft"     // Generated, still editable.
	StatusFinalized Status = "finalized" // Approved for cutting.
	StatusCompleted Status = "completed" // Cut.
)

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusDraft, StatusFinalized, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown mask status %q", s)
}

// Action is an externally requested lifecycle change.
type Action string

// Actions accepted by Status.Next.
const (
	ActionFinalize Action = "finalize"
	ActionComplete Action = "complete"
	ActionRevert   Action = "revert"
)

// TransitionError names the action that does not apply to the status.
type TransitionError struct {
	From   Status
	Action Action
}

// Error describes the rejected change.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a mask that is %s", e.Action, e.From)
}

// Unwrap returns ErrInvalidTransition.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Next returns the status reached by applying a to s. Statuses only move
// forward one step at a time; revert is the one way back to draft and is
// rejected for a mask that is already a draft.
func (s Status) Next(a Action) (Status, error) {
	switch {
	case a == ActionFinalize && s == StatusDraft:
		return StatusFinalized, nil
	case a == ActionComplete && s == StatusFinalized:
		return StatusCompleted, nil
	case a == ActionRevert && (s == StatusFinalized || s == StatusCompleted):
		return StatusDraft, nil
	}
	return "", &TransitionError{From: s, Action: a}
}

// Mask is one generated slit mask. Name is unique within Project.
type Mask struct {
	ID        string           `json:"id"`
	Project   string           `json:"project"`
	Name      string           `json:"name"`
	Status    Status           `json:"status"`
	Setup     setup.Setup      `json:"setup"`
	Features  []result.Feature `json:"-"`
	Included  []string         `json:"included"`
	Excluded  []string         `json:"excluded"`
	Artifacts []string         `json:"artifacts"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// New returns a draft mask for a successful run of s.
func New(s setup.Setup, features []result.Feature, in result.Inclusion, now time.Time) Mask {
	return Mask{
		ID:        uuid.NewString(),
		Project:   s.Project,
		Name:      s.Name,
		Status:    StatusDraft,
		Setup:     s,
		Features:  features,
		Included:  in.Included,
		Excluded:  in.Excluded,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// Counts returns the number of slits and holes.
func (m Mask) Counts() (slits, holes int) {
	for _, f := range m.Features {
		switch f.Kind() {
		case result.KindSlit:
			slits++
		case result.KindHole:
			holes++
		}
	}
	return slits, holes
}
