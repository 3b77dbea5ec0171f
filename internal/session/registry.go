package session

import (
	"strings"
	"sync"
)

type entry[V any] struct {
	session *Session
	value   V
}

// Registry maps artifact message ids to the session (and an attached value,
// typically the live view) that rendered them.
type Registry[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
}

func NewRegistry[V any]() *Registry[V] {
	return &Registry[V]{entries: map[string]entry[V]{}}
}

func (r *Registry[V]) Put(messageID string, s *Session, v V) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" || s == nil {
		return
	}
	r.mu.Lock()
	r.entries[messageID] = entry[V]{session: s, value: v}
	r.mu.Unlock()
}

func (r *Registry[V]) Get(messageID string) (*Session, V, bool) {
	r.mu.RLock()
	e, ok := r.entries[strings.TrimSpace(messageID)]
	r.mu.RUnlock()
	return e.session, e.value, ok
}

// Move re-keys an entry after its session switched to a new artifact.
func (r *Registry[V]) Move(from, to string) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == to || to == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[from]
	if !ok {
		return
	}
	delete(r.entries, from)
	r.entries[to] = e
}

func (r *Registry[V]) Delete(messageID string) {
	r.mu.Lock()
	delete(r.entries, strings.TrimSpace(messageID))
	r.mu.Unlock()
}

func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Keys returns a snapshot of registered message ids.
func (r *Registry[V]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	return out
}
