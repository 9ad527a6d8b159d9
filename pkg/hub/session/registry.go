// Package session maps UI conversation slots to stable conversation context
// ids and tracks working-directory associations. State is in-memory for the
// process lifetime; there is no persistence collaborator.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the process-wide slot-to-context table. A slot always maps to
// exactly one context id at a time; re-resolution is idempotent.
type Registry struct {
	mu           sync.Mutex
	contexts     map[string]string // slot id -> context id
	projectPaths map[string]string // context id -> working directory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		contexts:     make(map[string]string),
		projectPaths: make(map[string]string),
	}
}

// ContextFor returns the context id for a UI slot, creating one on first use.
// Context ids are random so concurrently-created contexts never collide.
func (r *Registry) ContextFor(slotID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if contextID, ok := r.contexts[slotID]; ok {
		return contextID
	}

	contextID := uuid.NewString()
	r.contexts[slotID] = contextID
	return contextID
}

// Lookup returns the context id for a slot without creating one.
func (r *Registry) Lookup(slotID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contextID, ok := r.contexts[slotID]
	return contextID, ok
}

// SetProjectPath associates a working directory with a context id.
func (r *Registry) SetProjectPath(contextID, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projectPaths[contextID] = path
}

// ProjectPath returns the working directory associated with a context id.
func (r *Registry) ProjectPath(contextID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.projectPaths[contextID]
	return path, ok
}

// Clear removes a slot's context mapping and the project path keyed by that
// slot's own context id. Other slots are untouched.
func (r *Registry) Clear(slotID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contextID, ok := r.contexts[slotID]
	if !ok {
		return
	}
	delete(r.contexts, slotID)
	delete(r.projectPaths, contextID)
}

// Slots returns the slot ids with an active context, for status listings.
func (r *Registry) Slots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	slots := make([]string, 0, len(r.contexts))
	for slotID := range r.contexts {
		slots = append(slots, slotID)
	}
	return slots
}
