package model

// bucket is the ordered collection of every observation ever received for
// one station, most-recent-first by Lamport timestamp (spec §3 invariant
// 2). Ties are broken by insertion order: the later insert becomes the new
// head of its timestamp run.
type bucket struct {
	observations []Observation
}

// insert places o into the bucket, preserving invariant 2. It walks
// forward to the first existing entry whose timestamp is less than or
// equal to o's, and inserts immediately before it — so an existing entry
// with an equal timestamp ends up behind the new one, and a strictly
// larger existing timestamp stays ahead of it.
func (b *bucket) insert(o Observation) {
	idx := len(b.observations)
	for i, existing := range b.observations {
		if existing.Timestamp <= o.Timestamp {
			idx = i
			break
		}
	}
	b.observations = append(b.observations, Observation{})
	copy(b.observations[idx+1:], b.observations[idx:])
	b.observations[idx] = o
}

// head returns the observation with the maximum timestamp, or false if the
// bucket is empty.
func (b *bucket) head() (Observation, bool) {
	if len(b.observations) == 0 {
		return Observation{}, false
	}
	return b.observations[0], true
}

// clone returns a deep-enough copy for checkpoint serialization: a new
// backing slice so later inserts do not mutate a snapshot in flight.
func (b *bucket) clone() []Observation {
	out := make([]Observation, len(b.observations))
	copy(out, b.observations)
	return out
}
