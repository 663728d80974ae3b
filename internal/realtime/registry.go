package realtime

import (
	"fmt"
	"sort"
	"sync"
)

// Entry records which workspace and user a connection currently represents.
type Entry struct {
	WorkspaceID int64
	UserID      int64
}

type Snapshot struct {
	Conn  ConnID
	Entry Entry
}

// Registry maps each connection to at most one presence entry. It has no
// knowledge of the transport; room membership is kept in step by Session.
type Registry struct {
	mu      sync.RWMutex
	entries map[ConnID]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: map[ConnID]Entry{}}
}

// RecordJoin inserts or overwrites the entry for conn.
func (r *Registry) RecordJoin(conn ConnID, workspaceID, userID int64) error {
	if workspaceID <= 0 || userID <= 0 {
		return fmt.Errorf("%w: workspace %d, user %d", ErrInvalidInput, workspaceID, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[conn] = Entry{WorkspaceID: workspaceID, UserID: userID}
	return nil
}

// RecordLeave removes the entry for conn and returns it. Absent entries are
// not an error.
func (r *Registry) RecordLeave(conn ConnID) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[conn]
	if ok {
		delete(r.entries, conn)
	}
	return entry, ok
}

// RemoveIf deletes the entry for conn only while it still equals expected.
func (r *Registry) RemoveIf(conn ConnID, expected Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.entries[conn]; ok && current == expected {
		delete(r.entries, conn)
		return true
	}
	return false
}

func (r *Registry) Lookup(conn ConnID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[conn]
	return entry, ok
}

// Entries returns a copy of the registry. Callers may iterate it while
// joins and leaves continue.
func (r *Registry) Entries() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.entries))
	for conn, entry := range r.entries {
		out = append(out, Snapshot{Conn: conn, Entry: entry})
	}
	return out
}

// Online returns the distinct user ids present in a workspace, ascending.
func (r *Registry) Online(workspaceID int64) []int64 {
	r.mu.RLock()
	seen := map[int64]struct{}{}
	for _, entry := range r.entries {
		if entry.WorkspaceID == workspaceID {
			seen[entry.UserID] = struct{}{}
		}
	}
	r.mu.RUnlock()

	users := make([]int64, 0, len(seen))
	for id := range seen {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = map[ConnID]Entry{}
}
