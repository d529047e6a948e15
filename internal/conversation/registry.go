package conversation

import "sync"

// Registry maps a user identity to its single active session. All access is
// serialized; the at-most-one-live-session invariant holds under concurrent
// entry-point events.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*Session)}
}

// Get returns the live session for a user, if any.
func (r *Registry) Get(userID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Replace installs a session for its user, displacing any existing one.
// A new entry-point event always starts fresh; drafts are never merged.
func (r *Registry) Replace(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.UserID] = s
}

// Remove destroys the session for a user.
func (r *Registry) Remove(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
