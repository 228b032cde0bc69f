package reservation

import (
	"sync"
	"time"

	"github.com/l1jgo/islands/internal/grid"
	"github.com/l1jgo/islands/internal/sched"
)

// DefaultTimeout is how long an unconfirmed allocation holds its cell.
const DefaultTimeout = 5 * time.Minute

// entry is stored by pointer so an expiry can tell its own reservation
// apart from a later one for the same cell, even at an identical instant.
type entry struct {
	at time.Time
}

// Table holds in-flight allocations keyed by cell name.
// Safe for concurrent use; it never takes the allocator's lock.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry

	timeout time.Duration
	clock   sched.Clock
	sched   sched.Scheduler
}

func NewTable(timeout time.Duration, clock sched.Clock, s sched.Scheduler) *Table {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Table{
		entries: make(map[string]*entry),
		timeout: timeout,
		clock:   clock,
		sched:   s,
	}
}

// Reserve records the cell as taken now, replacing any earlier reservation,
// and schedules its expiry. Returns the reservation instant.
func (t *Table) Reserve(c grid.Cell) time.Time {
	name := c.Name()
	e := &entry{at: t.clock.Now()}

	t.mu.Lock()
	t.entries[name] = e
	t.mu.Unlock()

	t.sched.RunAfterDelay(func() { t.expire(name, e) }, t.timeout)
	return e.at
}

// expire removes the entry only if it is still the one captured at Reserve time.
func (t *Table) expire(name string, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.entries[name]; ok && cur == e {
		delete(t.entries, name)
	}
}

// IsReserved reports whether a live reservation exists for the cell.
// An entry older than the timeout counts as expired even if its
// scheduled cleanup has not run yet.
func (t *Table) IsReserved(c grid.Cell) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[c.Name()]
	if !ok {
		return false
	}
	return t.clock.Now().Sub(e.at) < t.timeout
}

// ReservedAt returns the instant the cell was reserved, if it is reserved.
func (t *Table) ReservedAt(c grid.Cell) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[c.Name()]
	if !ok || t.clock.Now().Sub(e.at) >= t.timeout {
		return time.Time{}, false
	}
	return e.at, true
}

// Release drops a reservation early, e.g. once the island is confirmed.
func (t *Table) Release(c grid.Cell) {
	t.mu.Lock()
	delete(t.entries, c.Name())
	t.mu.Unlock()
}

// Len returns the number of stored entries, including stale ones awaiting cleanup.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table) Timeout() time.Duration {
	return t.timeout
}
