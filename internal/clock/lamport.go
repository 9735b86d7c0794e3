// Package clock implements the Lamport logical clock shared by the
// aggregator, producers and query clients (spec §4.2).
//
// The three operations are named after the teacher protocol's clock
// vocabulary (Tick/Tock/Leap in pkg/mcast/protocol.go and
// pkg/mcast/core/peer.go) but carry this system's own semantics: there is
// no conflict set to clear, just the classic Lamport rule L <- max(L, t)+1
// on receipt, and a side-effect-free read for the handshake line.
package clock

import "sync"

// Lamport is a monotonic, non-decreasing logical clock. All three
// operations are mutually exclusive with each other, guarded by a single
// mutex, matching spec §4.2's "single-threaded critical section"
// requirement.
type Lamport struct {
	mutex sync.Mutex
	value uint64
}

// New returns a Lamport clock starting at zero.
func New() *Lamport {
	return &Lamport{}
}

// Restore sets the clock to at least v, used when reloading a checkpoint
// (spec §3 invariant 5: invariants must be re-established before serving).
// It never moves the clock backward.
func (l *Lamport) Restore(v uint64) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if v > l.value {
		l.value = v
	}
}

// TickSend increments the clock and returns the new value. Used when the
// aggregator needs to advertise "what I know now plus one" — currently
// unused by the wire protocol (the handshake uses Current, not TickSend)
// but kept as the symmetric counterpart to Observe, matching the
// tickSend/observe/current trio spec'd in §4.2.
func (l *Lamport) TickSend() uint64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.value++
	return l.value
}

// Observe folds a remote timestamp into the clock: L <- max(L, tRemote) + 1.
// Called once per received request body, after header parse and before
// handler logic (spec §4.2).
func (l *Lamport) Observe(remote uint64) uint64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if remote > l.value {
		l.value = remote
	}
	l.value++
	return l.value
}

// Current returns the clock value without mutating it. This is what the
// handshake line advertises — the spec is explicit that the handshake
// does not tick the clock (§4.2).
func (l *Lamport) Current() uint64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.value
}
