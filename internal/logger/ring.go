package logger

import "sync"

// DefaultRingCapacity bounds the in-memory tail kept per instance.
const DefaultRingCapacity = 1000

// followerBuffer is the per-follower channel depth. A follower that cannot
// drain fast enough loses lines rather than stalling capture.
const followerBuffer = 256

// Ring is a bounded buffer of recent output lines with live followers.
// Appends never block on followers and followers never hold the ring lock
// between deliveries.
type Ring struct {
	mu        sync.Mutex
	lines     []string
	written   int // total lines ever appended; next slot is written % cap
	followers map[chan string]struct{}
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Ring{
		lines:     make([]string, capacity),
		followers: make(map[chan string]struct{}),
	}
}

// Append stores one line and fans it out to all followers in arrival order.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	r.lines[r.written%len(r.lines)] = line
	r.written++
	for ch := range r.followers {
		select {
		case ch <- line:
		default:
			// Slow follower; drop this line for it.
		}
	}
	r.mu.Unlock()
}

// Last returns up to n of the most recent lines, oldest first.
func (r *Ring) Last(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	capacity := len(r.lines)
	have := r.written
	if have > capacity {
		have = capacity
	}
	if n > have {
		n = have
	}
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	start := r.written - n
	for i := start; i < r.written; i++ {
		out = append(out, r.lines[i%capacity])
	}
	return out
}

// Len reports how many lines are currently buffered.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.written > len(r.lines) {
		return len(r.lines)
	}
	return r.written
}

// Follow subscribes to lines appended after this call. The cancel func
// detaches the follower and closes its channel; other followers and the
// buffer are unaffected.
func (r *Ring) Follow() (<-chan string, func()) {
	ch := make(chan string, followerBuffer)
	r.mu.Lock()
	r.followers[ch] = struct{}{}
	r.mu.Unlock()
	cancel := func() {
		r.mu.Lock()
		if _, ok := r.followers[ch]; ok {
			delete(r.followers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}
