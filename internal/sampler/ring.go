// Package sampler holds the bounded telemetry buffer that every
// downstream analyzer reads from. The buffer is a fixed-capacity arena
// with a write cursor; pushing is O(1) and the memory footprint is
// constant for the lifetime of a run.
package sampler

import "github.com/sentomas/Digital-Twin-CNC/internal/machine"

// DefaultCapacity covers one second of telemetry at the sample rate.
const DefaultCapacity = int(machine.SampleRate)

// Ring is a fixed-capacity ring buffer of telemetry samples. The
// oldest sample is evicted when the buffer is full. It is not safe for
// concurrent use; callers serialize access and read via copies.
type Ring struct {
	data []machine.Sample
	pos  int
	full bool
	cap  int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		data: make([]machine.Sample, capacity),
		cap:  capacity,
	}
}

// Push appends a sample, evicting the oldest when full.
func (r *Ring) Push(s machine.Sample) {
	r.data[r.pos] = s
	r.pos++
	if r.pos >= r.cap {
		r.pos = 0
		r.full = true
	}
}

func (r *Ring) Len() int {
	if r.full {
		return r.cap
	}
	return r.pos
}

func (r *Ring) Cap() int { return r.cap }

// Latest returns the most recent sample, if any.
func (r *Ring) Latest() (machine.Sample, bool) {
	if r.Len() == 0 {
		return machine.Sample{}, false
	}
	i := r.pos - 1
	if i < 0 {
		i = r.cap - 1
	}
	return r.data[i], true
}

// Snapshot returns a copy of the buffer contents in insertion order.
// The copy is immutable from the buffer's point of view, so readers can
// analyze it without observing tearing from later pushes.
func (r *Ring) Snapshot() []machine.Sample {
	n := r.Len()
	out := make([]machine.Sample, n)
	if r.full {
		copy(out, r.data[r.pos:])
		copy(out[r.cap-r.pos:], r.data[:r.pos])
	} else {
		copy(out, r.data[:r.pos])
	}
	return out
}

// Recent returns a copy of the most recent n samples in insertion
// order, or all of them when fewer are held.
func (r *Ring) Recent(n int) []machine.Sample {
	all := r.Snapshot()
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
