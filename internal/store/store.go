// Package store holds the bounded, insertion-ordered sample history shared
// between the sampling loop and the snapshot readers.
package store

import (
	"sync"
	"time"
)

// TimestampLayout is the fixed textual format of Sample.Timestamp.
const TimestampLayout = "2006/01/02 15:04:05"

// Sample is an immutable humidity/temperature measurement.
type Sample struct {
	Timestamp   string
	Humidity    float64
	Temperature float64
}

// NewSample stamps a measurement with t at second precision.
func NewSample(t time.Time, humidity, temperature float64) Sample {
	return Sample{
		Timestamp:   t.Format(TimestampLayout),
		Humidity:    humidity,
		Temperature: temperature,
	}
}

// Store is a capacity-bounded FIFO of samples. All methods are safe for
// concurrent use; Snapshot never exposes the internal slice.
type Store struct {
	mu       sync.Mutex
	samples  []Sample
	capacity int
}

// New creates an empty store. capacity must be positive.
func New(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}

	return &Store{
		samples:  make([]Sample, 0, capacity+1),
		capacity: capacity,
	}
}

// Capacity returns the maximum number of retained samples.
func (s *Store) Capacity() int {
	return s.capacity
}

// Append inserts sample at the tail, evicting the head when over capacity.
func (s *Store) Append(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, sample)
	if len(s.samples) > s.capacity {
		copy(s.samples, s.samples[1:])
		s.samples = s.samples[:len(s.samples)-1]
	}
}

// Snapshot returns an independent copy of the current contents, oldest
// first.
func (s *Store) Snapshot() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Sample, len(s.samples))
	copy(out, s.samples)

	return out
}

// Len returns the number of retained samples.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.samples)
}

// LoadFrom replaces the contents wholesale. Only the newest capacity
// samples of persisted are kept, so a checkpoint taken with a larger
// capacity still satisfies the bound.
func (s *Store) LoadFrom(persisted []Sample) {
	if len(persisted) > s.capacity {
		persisted = persisted[len(persisted)-s.capacity:]
	}

	samples := make([]Sample, len(persisted), s.capacity+1)
	copy(samples, persisted)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = samples
}
