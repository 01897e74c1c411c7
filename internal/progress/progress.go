// Package progress publishes per-specialist status updates so an external
// observer can render live evaluation progress. Emission is push-based and
// has no effect on evaluation outcomes.
package progress

import (
	"sort"
	"sync"
	"time"

	"github.com/bidpanel/bidpanel/internal/models"
)

// Stage is the lifecycle state of one specialist execution.
type Stage string

const (
	StagePending    Stage = "pending"
	StageInProgress Stage = "in-progress"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// Update is one status event for a (vendor, role) pair within a scope.
type Update struct {
	ScopeID string      `json:"scope_id"`
	Vendor  string      `json:"vendor"`
	Role    models.Role `json:"role"`
	Stage   Stage       `json:"stage"`
	Message string      `json:"message,omitempty"`
	At      time.Time   `json:"at"`
}

// Listener receives updates. Listeners are invoked synchronously and must not
// block.
type Listener func(Update)

type pairKey struct {
	vendor string
	role   models.Role
}

// Reporter tracks the latest update per (vendor, role) pair in each scope and
// fans updates out to subscribers. Safe for concurrent use.
type Reporter struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]Listener
	latest map[string]map[pairKey]Update
}

// NewReporter creates an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{
		subs:   make(map[string]map[int]Listener),
		latest: make(map[string]map[pairKey]Update),
	}
}

// Subscribe registers a listener for a scope and returns its unsubscribe
// function. The listener immediately receives the scope's current snapshot so
// late subscribers do not wait for the next event.
func (r *Reporter) Subscribe(scopeID string, listener Listener) func() {
	r.mu.Lock()
	if r.subs[scopeID] == nil {
		r.subs[scopeID] = make(map[int]Listener)
	}
	id := r.nextID
	r.nextID++
	r.subs[scopeID][id] = listener
	replay := r.snapshotLocked(scopeID)
	r.mu.Unlock()

	for _, u := range replay {
		listener(u)
	}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs[scopeID], id)
	}
}

// Emit records the update as the latest state for its (vendor, role) pair and
// notifies the scope's subscribers.
func (r *Reporter) Emit(u Update) {
	if u.At.IsZero() {
		u.At = time.Now().UTC()
	}

	r.mu.Lock()
	if r.latest[u.ScopeID] == nil {
		r.latest[u.ScopeID] = make(map[pairKey]Update)
	}
	r.latest[u.ScopeID][pairKey{vendor: u.Vendor, role: u.Role}] = u

	listeners := make([]Listener, 0, len(r.subs[u.ScopeID]))
	for _, l := range r.subs[u.ScopeID] {
		listeners = append(listeners, l)
	}
	r.mu.Unlock()

	for _, l := range listeners {
		l(u)
	}
}

// Snapshot returns the latest update per (vendor, role) pair in the scope,
// ordered by vendor then role for stable rendering.
func (r *Reporter) Snapshot(scopeID string) []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(scopeID)
}

func (r *Reporter) snapshotLocked(scopeID string) []Update {
	pairs := r.latest[scopeID]
	out := make([]Update, 0, len(pairs))
	for _, u := range pairs {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Vendor != out[j].Vendor {
			return out[i].Vendor < out[j].Vendor
		}
		return out[i].Role < out[j].Role
	})
	return out
}

// ClearScope drops the scope's recorded history. Active subscriptions are
// kept and continue to receive future updates.
func (r *Reporter) ClearScope(scopeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.latest, scopeID)
}
