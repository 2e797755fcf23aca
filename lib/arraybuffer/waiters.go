package arraybuffer

import (
	"sync"
)

// Waiter is one agent blocked in a wait. It is woken at most once.
type Waiter struct {
	AgentID int64
	signal  chan struct{}
	once    sync.Once
}

// NewWaiter returns an unwoken waiter for the agent.
func NewWaiter(agentID int64) *Waiter {
	return &Waiter{AgentID: agentID, signal: make(chan struct{})}
}

// Signal is closed when the waiter is woken.
func (w *Waiter) Signal() <-chan struct{} { return w.signal }

// Woken reports whether Wake was called.
func (w *Waiter) Woken() bool {
	select {
	case <-w.signal:
		return true
	default:
		return false
	}
}

// Wake releases the waiter. Extra calls do nothing.
func (w *Waiter) Wake() {
	w.once.Do(func() { close(w.signal) })
}

// WaiterList is the FIFO of agents waiting on one location of a shared
// store. Add, Remove and NotifyN must be called with the list locked.
type WaiterList struct {
	mu      sync.Mutex
	waiters []*Waiter
}

// Lock enters the critical section of the location.
func (l *WaiterList) Lock() { l.mu.Lock() }

// Unlock leaves the critical section of the location.
func (l *WaiterList) Unlock() { l.mu.Unlock() }

// Add appends w to the list.
func (l *WaiterList) Add(w *Waiter) {
	l.waiters = append(l.waiters, w)
}

// Remove takes w out of the list and reports whether it was there. Removing
// a waiter that is not listed is a no-op.
func (l *WaiterList) Remove(w *Waiter) bool {
	for i, x := range l.waiters {
		if x == w {
			copy(l.waiters[i:], l.waiters[i+1:])
			l.waiters[len(l.waiters)-1] = nil
			l.waiters = l.waiters[:len(l.waiters)-1]
			return true
		}
	}
	return false
}

// NotifyN removes and wakes up to count waiters in arrival order, all of
// them when count is negative. It returns how many were woken.
func (l *WaiterList) NotifyN(count int64) int64 {
	n := int64(len(l.waiters))
	if count >= 0 && count < n {
		n = count
	}
	for _, w := range l.waiters[:n] {
		w.Wake()
	}
	rest := copy(l.waiters, l.waiters[n:])
	clear(l.waiters[rest:])
	l.waiters = l.waiters[:rest]
	return n
}

// Len is the number of registered waiters.
func (l *WaiterList) Len() int { return len(l.waiters) }

// Waiters returns the waiter list for the element at byteIndex, creating it
// on first use. Only shared stores have waiter lists; nil is returned for
// the others.
func (s *Store) Waiters(byteIndex int64) *WaiterList {
	if !s.shared {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiters == nil {
		s.waiters = make(map[int64]*WaiterList)
	}
	l, ok := s.waiters[byteIndex]
	if !ok {
		l = &WaiterList{}
		s.waiters[byteIndex] = l
	}
	return l
}
