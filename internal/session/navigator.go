// Package session holds the user and admin session contexts. Each context
// mirrors the backend session for one visitor and drives login redirects
// through a Navigator.
package session

import "sync"

// NavigationKind tells how a navigation should be performed
type NavigationKind int

const (
	// NavReplace is an in-app navigation that replaces the current history entry
	NavReplace NavigationKind = iota + 1
	// NavAssign is a full page load, so freshly set cookies are sent with it
	NavAssign
)

func (k NavigationKind) String() string {
	switch k {
	case NavReplace:
		return "replace"
	case NavAssign:
		return "assign"
	default:
		return "none"
	}
}

// Navigation is a navigation requested by a session context
type Navigation struct {
	Kind   NavigationKind
	Target string
}

// Navigator performs navigations requested by the session contexts
type Navigator interface {
	Replace(target string)
	Assign(target string)
}

// Recorder is a Navigator that remembers what was requested. HTTP handlers turn
// the last navigation into a redirect response.
type Recorder struct {
	mu      sync.Mutex
	history []Navigation
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Replace(target string) {
	r.record(Navigation{Kind: NavReplace, Target: target})
}

func (r *Recorder) Assign(target string) {
	r.record(Navigation{Kind: NavAssign, Target: target})
}

func (r *Recorder) record(n Navigation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, n)
}

// Last returns the most recent navigation
func (r *Recorder) Last() (Navigation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return Navigation{}, false
	}
	return r.history[len(r.history)-1], true
}

// History returns every recorded navigation, oldest first
func (r *Recorder) History() []Navigation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Navigation, len(r.history))
	copy(out, r.history)
	return out
}

// Reset forgets recorded navigations
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
}
