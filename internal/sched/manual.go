package sched

import (
	"sort"
	"sync"
	"time"
)

// Manual is a simulated clock and scheduler. Nothing runs until the test
// calls Advance or RunPending.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	delayed []delayedTask
	async   []func()
}

type delayedTask struct {
	at  time.Time
	seq int
	fn  func()
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) RunAsync(fn func()) {
	m.mu.Lock()
	m.async = append(m.async, fn)
	m.mu.Unlock()
}

func (m *Manual) RunAfterDelay(fn func(), d time.Duration) {
	m.mu.Lock()
	m.seq++
	m.delayed = append(m.delayed, delayedTask{at: m.now.Add(d), seq: m.seq, fn: fn})
	m.mu.Unlock()
}

// Advance moves the clock forward and runs every delayed task that came due,
// in due-time order, with the clock set to each task's due time.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.Slice(m.delayed, func(i, j int) bool {
			if m.delayed[i].at.Equal(m.delayed[j].at) {
				return m.delayed[i].seq < m.delayed[j].seq
			}
			return m.delayed[i].at.Before(m.delayed[j].at)
		})
		if len(m.delayed) == 0 || m.delayed[0].at.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		task := m.delayed[0]
		m.delayed = m.delayed[1:]
		m.now = task.at
		m.mu.Unlock()
		task.fn()
	}
}

// RunPending runs queued async tasks, including any they queue, and returns how many ran.
func (m *Manual) RunPending() int {
	n := 0
	for {
		m.mu.Lock()
		batch := m.async
		m.async = nil
		m.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// PendingDelayed returns the number of delayed tasks not yet run.
func (m *Manual) PendingDelayed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.delayed)
}
