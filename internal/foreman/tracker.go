// Package foreman coordinates the external agent against the vault's
// file-system work queue: the scan/dispatch orchestrator, the shared
// dispatch-with-retry policy, and the iterative task loop.
package foreman

import (
	"sort"
	"sync"
	"time"
)

// State is an item's lifecycle position. Transitions are strictly forward;
// failures record an error reason beside the state instead of moving to a
// terminal failure state.
type State string

const (
	StateDetected         State = "DETECTED"
	StateProcessing       State = "PROCESSING"
	StateAwaitingApproval State = "AWAITING_APPROVAL"
	StateApproved         State = "APPROVED"
	StateExecuting        State = "EXECUTING"
	StateDone             State = "DONE"
)

// ItemView is an item snapshot as rendered into the health file. State and
// Error appear together so "errored while in state X" reads as one value.
type ItemView struct {
	File    string    `json:"file"`
	Type    string    `json:"type"`
	State   State     `json:"state"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	Retries int       `json:"retries"`
	Error   string    `json:"error,omitempty"`
}

type item struct {
	file     string
	itemType string
	state    State
	created  time.Time
	updated  time.Time
	retries  int
	err      string
}

// Tracker holds the in-memory lifecycle state of every detected item, keyed
// by file base name. It is ephemeral: the file system is the durable source
// of truth and the tracker is rebuilt from directory contents on restart.
type Tracker struct {
	mu    sync.Mutex
	items map[string]*item

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{items: map[string]*item{}, Now: time.Now}
}

// Observe records a newly detected item in the given initial state. An
// existing entry for the same file is advanced instead of replaced.
func (t *Tracker) Observe(file, itemType string, state State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.Now().UTC()
	if existing, ok := t.items[file]; ok {
		existing.state = state
		existing.updated = now
		return
	}
	t.items[file] = &item{
		file:     file,
		itemType: itemType,
		state:    state,
		created:  now,
		updated:  now,
	}
}

// Advance moves an item to a new state. Unknown files are ignored.
func (t *Tracker) Advance(file string, state State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if it, ok := t.items[file]; ok {
		it.state = state
		it.updated = t.Now().UTC()
	}
}

// Fail records an error reason for an item and bumps its retry count. The
// item halts in its current state.
func (t *Tracker) Fail(file, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if it, ok := t.items[file]; ok {
		it.err = reason
		it.retries++
		it.updated = t.Now().UTC()
	}
}

// Get returns the current view of one item.
func (t *Tracker) Get(file string) (ItemView, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	it, ok := t.items[file]
	if !ok {
		return ItemView{}, false
	}
	return it.view(), true
}

// Items returns a snapshot of all tracked items, sorted by file name.
func (t *Tracker) Items() []ItemView {
	t.mu.Lock()
	defer t.mu.Unlock()

	views := make([]ItemView, 0, len(t.items))
	for _, it := range t.items {
		views = append(views, it.view())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].File < views[j].File })
	return views
}

// Len returns the number of tracked items.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

func (it *item) view() ItemView {
	return ItemView{
		File:    it.file,
		Type:    it.itemType,
		State:   it.state,
		Created: it.created,
		Updated: it.updated,
		Retries: it.retries,
		Error:   it.err,
	}
}
