package services

import (
	"fmt"
	"sync"
)

// TurnKey identifies an in-flight turn: at most one is tracked per key.
type TurnKey struct {
	UserID         int64
	ConversationID int64
}

func (k TurnKey) String() string {
	return fmt.Sprintf("user_%d_conv_%d", k.UserID, k.ConversationID)
}

type turnEntry struct {
	generation uint64
	stop       bool
}

// TurnRegistry is the process-wide table of in-flight turns and their stop
// flags. Lifecycle is process uptime; nothing is persisted. It is injected
// into the orchestrator and the stop endpoint rather than held as a global.
type TurnRegistry struct {
	mu         sync.Mutex
	generation uint64
	active     map[TurnKey]turnEntry
}

func NewTurnRegistry() *TurnRegistry {
	return &TurnRegistry{active: make(map[TurnKey]turnEntry)}
}

// Register inserts the key with a cleared stop flag and returns a generation
// token for the matching Clear. A second registration for the same key
// overwrites the previous turn's tracking.
func (r *TurnRegistry) Register(key TurnKey) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.active[key] = turnEntry{generation: r.generation}
	return r.generation
}

// RequestStop sets the stop flag and reports whether an active turn was
// found. False means there is nothing to stop.
func (r *TurnRegistry) RequestStop(key TurnKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.active[key]
	if !ok {
		return false
	}
	entry.stop = true
	r.active[key] = entry
	return true
}

// IsStopRequested is polled by the orchestrator between chunks.
func (r *TurnRegistry) IsStopRequested(key TurnKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[key].stop
}

// Clear removes the entry if it still belongs to the given registration.
// Safe for an absent key; a superseded turn cannot clear the entry of the
// turn that replaced it.
func (r *TurnRegistry) Clear(key TurnKey, generation uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.active[key]; ok && entry.generation == generation {
		delete(r.active, key)
	}
}
