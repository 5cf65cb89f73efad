// Package events announces mask lifecycle changes to other systems.
package events

import (
	"context"
	"sync"
	"time"
)

// Type names a lifecycle change.
type Type string

// Event types, one per lifecycle change.
const (
	TypeCreated   Type = "mask.created"
	TypeFinalized Type = "mask.finalized"
	TypeCompleted Type = "mask.completed"
	TypeReverted  Type = "mask.reverted"
	TypeDeleted   Type = "mask.deleted"
)

// Event is one lifecycle change of one mask.
type Event struct {
	Type    Type      `json:"type"`
	Project string    `json:"project"`
	Mask    string    `json:"mask"`
	Status  string    `json:"status,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// Key groups events of one mask so they stay ordered on a partitioned topic.
func (e Event) Key() string {
	return e.Project + "/" + e.Mask
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends ev.
func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the published event types in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Close is a no-op.
func (r *Recorder) Close() error { return nil }

// Discard drops every event.
type Discard struct{}

// Publish does nothing.
func (Discard) Publish(context.Context, Event) error { return nil }

// Close does nothing.
func (Discard) Close() error { return nil }
