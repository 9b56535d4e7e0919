package timeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrSessionExists is returned by Start for a session id that is already active
	ErrSessionExists = errors.New("session already started")
	// ErrSessionNotFound is returned for a session id that was never started or already ended
	ErrSessionNotFound = errors.New("session not found")
)

// Registry owns the timelines of all active sessions and serializes access to each one.
// Different sessions proceed in parallel.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	opts     []Option
}

type session struct {
	mu sync.Mutex
	tl *Timeline
}

// NewRegistry creates an empty registry; opts are applied to every timeline it creates
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		opts:     opts,
	}
}

// Start creates the timeline for a new session
func (r *Registry) Start(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	r.sessions[id] = &session{tl: New(r.opts...)}
	return nil
}

// With runs fn with exclusive access to the session's timeline
func (r *Registry) With(id string, fn func(*Timeline) error) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tl == nil {
		// ended while we were waiting for the lock
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return fn(s.tl)
}

// Close forgets the session and hands its timeline to the caller. Operations that were
// waiting on the session finish first; later ones fail with ErrSessionNotFound.
func (r *Registry) Close(id string) (*Timeline, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tl := s.tl
	s.tl = nil
	if tl == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return tl, nil
}

// Reopen registers a timeline returned by Close under its id again
func (r *Registry) Reopen(id string, tl *Timeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return fmt.Errorf("%w: %s", ErrSessionExists, id)
	}
	r.sessions[id] = &session{tl: tl}
	return nil
}

// End clears the session's timeline and forgets it
func (r *Registry) End(id string) error {
	tl, err := r.Close(id)
	if err != nil {
		return err
	}
	tl.Clear()
	return nil
}

// Active returns the ids of all active sessions, sorted
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
