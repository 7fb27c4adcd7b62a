// Package blob keeps short-lived, revocable in-memory references to binary
// payloads received from peers.
package blob

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultGrace is how long a reference stays resolvable after creation.
const DefaultGrace = 60 * time.Second

// Scheme prefixes every reference created by a Registry.
const Scheme = "blob:peerchat/"

// ErrRevoked is returned when resolving a reference that was revoked or never existed.
var ErrRevoked = errors.New("blob reference revoked")

type entry struct {
	data        []byte
	contentType string
	timer       *time.Timer
}

// Registry holds binary payloads behind opaque references.
type Registry struct {
	mu      sync.Mutex
	grace   time.Duration
	entries map[string]*entry
}

// NewRegistry creates a registry whose references expire after grace.
// A non-positive grace uses DefaultGrace.
func NewRegistry(grace time.Duration) *Registry {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Registry{
		grace:   grace,
		entries: make(map[string]*entry),
	}
}

// Create stores data and returns a reference that is revoked after the grace window.
func (r *Registry) Create(data []byte, contentType string) string {
	ref := Scheme + uuid.NewString()
	e := &entry{data: data, contentType: contentType}

	r.mu.Lock()
	r.entries[ref] = e
	e.timer = time.AfterFunc(r.grace, func() { r.Revoke(ref) })
	r.mu.Unlock()
	return ref
}

// Open resolves a reference to its bytes and content type.
func (r *Registry) Open(ref string) ([]byte, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[ref]
	if !ok {
		return nil, "", ErrRevoked
	}
	return e.data, e.contentType, nil
}

// Revoke releases a reference. Revoking twice is a no-op.
func (r *Registry) Revoke(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[ref]; ok {
		e.timer.Stop()
		delete(r.entries, ref)
	}
}

// Len returns the number of live references.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close revokes every reference.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ref, e := range r.entries {
		e.timer.Stop()
		delete(r.entries, ref)
	}
}

// IsRef reports whether s looks like a reference produced by a Registry.
func IsRef(s string) bool {
	return strings.HasPrefix(s, Scheme)
}
