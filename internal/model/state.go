package model

import (
	"sync"
	"time"
)

// State owns every piece of in-memory data the aggregator holds: the
// station buckets, the producer liveness table, and the most-recent
// pointer. It is the generalized descendant of the teacher's
// types.InMemoryStateMachine (pkg/mcast/types/state_machine.go), whose
// Commit method switched on Command vs Query; here Put and Get play that
// role directly, since (per spec §4.4/§9) a single worker goroutine makes
// the whole handler one critical section and the mutex below exists only
// to let the checkpointer take a consistent snapshot concurrently.
type State struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	liveness liveness
	recent   recentPointer
	now      func() time.Time
}

// New builds an empty State. now is injected so tests can simulate the
// wall-clock advances spec §8 scenario 5 requires.
func New(now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{
		buckets:  make(map[string]*bucket),
		liveness: make(liveness),
		now:      now,
	}
}

// Put implements spec §4.5 steps 6-7: construct the observation, touch the
// producer's liveness entry, insert it into its station bucket, and
// advance the most-recent pointer — all as a single atomic step under the
// lock.
func (s *State) Put(producer string, timestamp uint64, body []byte) (Observation, error) {
	obs, err := ParseObservation(body, timestamp, producer)
	if err != nil {
		return Observation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.liveness.touch(producer, s.now())

	b, ok := s.buckets[obs.StationID]
	if !ok {
		b = &bucket{}
		s.buckets[obs.StationID] = b
	}
	b.insert(obs)

	s.recent.advance(obs.StationID, obs.Timestamp)

	return obs, nil
}

// Get implements spec §4.6 steps 2-5: resolve the default station from the
// most-recent pointer when none is named, then scan the bucket in
// descending-timestamp order for the first observation that is both
// causally visible (timestamp <= requested clock) and live (producer seen
// within the expiry window).
func (s *State) Get(stationID string, requestClock uint64, expiry time.Duration) (Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stationID == "" {
		if !s.recent.set {
			return Observation{}, ErrNotFound
		}
		stationID = s.recent.station
	}

	b, ok := s.buckets[stationID]
	if !ok {
		return Observation{}, ErrNotFound
	}

	at := s.now()
	for _, o := range b.observations {
		if o.Timestamp > requestClock {
			continue
		}
		if s.liveness.alive(o.Producer, at, expiry) {
			return o, nil
		}
	}
	return Observation{}, ErrNotFound
}

// Snapshot is a point-in-time, independently-owned copy of State suitable
// for JSON serialization by the checkpointer (spec §4.7, §6).
type Snapshot struct {
	Buckets         map[string][]Observation
	Liveness        map[string]time.Time
	MostRecentSet   bool
	MostRecentID    string
	LatestTimestamp uint64
}

// Export takes a consistent snapshot of every field under the lock. The
// checkpointer calls this instead of pausing the worker, satisfying §4.7's
// "take a consistent snapshot" requirement via reader/writer coordination
// rather than worker-pausing.
func (s *State) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	buckets := make(map[string][]Observation, len(s.buckets))
	for id, b := range s.buckets {
		buckets[id] = b.clone()
	}

	return Snapshot{
		Buckets:         buckets,
		Liveness:        s.liveness.clone(),
		MostRecentSet:   s.recent.set,
		MostRecentID:    s.recent.station,
		LatestTimestamp: s.recent.ts,
	}
}

// Restore replaces all in-memory state from a snapshot, re-establishing
// invariants 1-4 before any new request is served (spec §3 invariant 5).
// Bucket slices are assumed to already respect invariant 2 (they were
// produced by Export, which copies each bucket in its descending-timestamp
// order).
func (s *State) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets = make(map[string]*bucket, len(snap.Buckets))
	for id, obs := range snap.Buckets {
		cp := make([]Observation, len(obs))
		copy(cp, obs)
		s.buckets[id] = &bucket{observations: cp}
	}

	s.liveness = liveness(snap.Liveness).clone()

	s.recent = recentPointer{
		station: snap.MostRecentID,
		ts:      snap.LatestTimestamp,
		set:     snap.MostRecentSet,
	}
}

// StationCount and ProducerCount back the startup-restore log line
// described in SPEC_FULL.md's supplemental features.
func (s *State) StationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *State) ProducerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.liveness)
}
