// Package actionlock provides a single-slot gate that keeps one mutating
// action in flight per editing session.
package actionlock

import (
	"log/slog"
	"sync"
)

// Lock records at most one in-flight action by name.
//
// Begin fails fast instead of waiting: a second save while the first is still
// running is dropped, not queued. End clears the slot unconditionally.
//
// The zero value is an unlocked Lock. Safe for concurrent use.
type Lock struct {
	mu     sync.Mutex
	action string
	held   bool
}

// Begin records name as the in-flight action. It returns false and changes
// nothing when another action is already in flight.
func (l *Lock) Begin(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		slog.Debug("action rejected, another action in flight", "action", name, "in_flight", l.action)
		return false
	}
	l.held = true
	l.action = name
	return true
}

// End clears the in-flight action.
func (l *Lock) End() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.action = ""
}

// Current returns the in-flight action, if any.
func (l *Lock) Current() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.action, l.held
}

// Busy reports whether an action is in flight.
func (l *Lock) Busy() bool {
	_, held := l.Current()
	return held
}
